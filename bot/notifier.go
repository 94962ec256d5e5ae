/* notifier.go
 * Contains the notification dispatcher: direct messages and batch fan-out to tournament
 * participants. The Discord session is established lazily on first use and reused for
 * the lifetime of the process; no per-request clients.
 */

package bot

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"tourney-bot/api/shared"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"
)

// Per-recipient bound so one stalled send cannot hang a whole batch
const sendTimeout = 5 * time.Second

// Notifier delivers direct messages to individual Discord identities. A recipient with
// DMs disabled or the bot blocked fails alone; batch sends always reach everyone else.
type Notifier struct {
	mu      sync.Mutex
	session DiscordSession
	dial    func() (DiscordSession, error)

	limiter *rate.Limiter
	timeout time.Duration
}

// NewNotifier creates a dispatcher that dials its own REST session with the given bot
// token on first use
func NewNotifier(botToken string) *Notifier {
	n := newNotifier()
	n.dial = func() (DiscordSession, error) {
		// REST calls do not need an open gateway connection
		return discordgo.New("Bot " + botToken)
	}
	return n
}

// NewNotifierWithSession creates a dispatcher over an already established session,
// used by the bot runtime and by tests
func NewNotifierWithSession(s DiscordSession) *Notifier {
	n := newNotifier()
	n.session = s
	return n
}

func newNotifier() *Notifier {
	return &Notifier{
		limiter: rate.NewLimiter(rate.Every(250*time.Millisecond), 5),
		timeout: sendTimeout,
	}
}

// getSession returns the cached session, dialling it exactly once on first use
func (n *Notifier) getSession() (DiscordSession, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.session != nil {
		return n.session, nil
	}
	if n.dial == nil {
		return nil, fmt.Errorf("notifier has no session and no way to dial one")
	}
	s, err := n.dial()
	if err != nil {
		return nil, fmt.Errorf("failed to establish discord session: %w", err)
	}
	n.session = s
	return s, nil
}

// SendDirectMessage opens (or reuses) the DM channel with a user and sends text to it
// Preconditions: Receives the recipient's discord id and the message text
// Postconditions: Message delivered, or an error if the user is unreachable
func (n *Notifier) SendDirectMessage(discordID string, text string) error {
	session, err := n.getSession()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	channel, err := session.UserChannelCreate(discordID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to open DM channel with %s: %w", discordID, err)
	}
	if _, err := session.ChannelMessageSend(channel.ID, text, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to DM %s: %w", discordID, err)
	}
	return nil
}

// SendChannelMessage posts text to a guild channel, used for operator alerts
func (n *Notifier) SendChannelMessage(channelID string, text string) error {
	session, err := n.getSession()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	if _, err := session.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to post to channel %s: %w", channelID, err)
	}
	return nil
}

// Broadcast sends text to every recipient in turn, paced by the rate limiter. One
// recipient failing or timing out never cancels the rest; the failures come back in a
// single PartialDeliveryError.
// Preconditions: Receives the flattened recipient list and the message text
// Postconditions: Returns nil if everyone was reached, or a PartialDeliveryError
func (n *Notifier) Broadcast(recipients []shared.Recipient, text string) error {
	var failed []shared.DeliveryFailure
	for _, r := range recipients {
		if r.DiscordID == "" {
			failed = append(failed, shared.DeliveryFailure{Recipient: r, Reason: "no linked discord account"})
			continue
		}
		if err := n.limiter.Wait(context.Background()); err != nil {
			failed = append(failed, shared.DeliveryFailure{Recipient: r, Reason: err.Error()})
			continue
		}
		if err := n.SendDirectMessage(r.DiscordID, text); err != nil {
			log.Println("broadcast delivery failed:", err)
			failed = append(failed, shared.DeliveryFailure{Recipient: r, Reason: err.Error()})
		}
	}
	if len(failed) > 0 {
		return &shared.PartialDeliveryError{Failed: failed}
	}
	return nil
}
