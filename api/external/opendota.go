/* opendota.go
 * Contains the client used to fetch player match history from the OpenDota api.
 * The provider is untrusted: it may be slow, down, or return malformed data, none of
 * which is allowed to take down an eligibility check.
 */

package external

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.opendota.com"

// Ranked All Pick lobby type in the Dota match data
const lobbyTypeRanked = 7

// Outbound calls are bounded so a stalled provider cannot hang a join request
const requestTimeout = 5 * time.Second

// MatchRecord is a single entry of a player's match history. Only the fields the
// eligibility checks care about are decoded.
type MatchRecord struct {
	MatchID   int64 `json:"match_id"`
	LobbyType int   `json:"lobby_type"`
	GameMode  int   `json:"game_mode"`
	StartTime int64 `json:"start_time"`
}

// Client queries the OpenDota api for player match histories
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a match history client. An empty baseURL selects the public
// OpenDota endpoint; tests point it at a local server.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: requestTimeout},
	}
}

// FetchPlayerMatches fetches the full match history for a 32-bit steam account id.
// Preconditions: Receives a string containing the player's 32-bit steam account id
// Postconditions: Returns the decoded match records, or an error if the provider is
// unreachable or returns something that is not a match array
func (c *Client) FetchPlayerMatches(accountID string) ([]MatchRecord, error) {
	url := fmt.Sprintf("%s/api/players/%s/matches", c.BaseURL, accountID)

	request, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("User-Agent", "TourneyBot/1.0")

	response, err := c.HTTPClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("match history request failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("match history request returned status %d", response.StatusCode)
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read match history response: %w", err)
	}

	// OpenDota returns a JSON object (e.g. {"error": ...}) instead of an array for
	// private or unknown profiles
	var matches []MatchRecord
	if err := json.Unmarshal(body, &matches); err != nil {
		return nil, fmt.Errorf("malformed match history response: %w", err)
	}

	return matches, nil
}

// CountRankedMatches returns how many of a player's matches were played in the
// ranked lobby. Provider failures and malformed responses count as zero matches;
// eligibility is the caller's problem, crashing is not.
func (c *Client) CountRankedMatches(accountID string) int {
	matches, err := c.FetchPlayerMatches(accountID)
	if err != nil {
		log.Println("match history lookup failed, treating as zero ranked matches:", err)
		return 0
	}

	count := 0
	for _, m := range matches {
		if m.LobbyType == lobbyTypeRanked {
			count++
		}
	}
	return count
}
