/* notifier_test.go
 * Contains unit tests for the notification dispatcher using mock Discord session
 */

package bot

import (
	"errors"
	"testing"

	"tourney-bot/api/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendDirectMessage_Success(t *testing.T) {
	mockSession := NewMockDiscordSession()
	notifier := NewNotifierWithSession(mockSession)

	err := notifier.SendDirectMessage("user1", "lobby is up")
	require.NoError(t, err)

	assert.Equal(t, []string{"user1"}, mockSession.DMChannels)
	require.Len(t, mockSession.SentMessages, 1)
	assert.Equal(t, "dm_user1", mockSession.SentMessages[0].ChannelID)
	assert.Equal(t, "lobby is up", mockSession.SentMessages[0].Content)
}

func TestSendDirectMessage_SendFailure(t *testing.T) {
	mockSession := NewMockDiscordSession()
	mockSession.SendErrFor["dm_user1"] = errors.New("cannot send messages to this user")
	notifier := NewNotifierWithSession(mockSession)

	err := notifier.SendDirectMessage("user1", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user1")
}

func TestSendChannelMessage_Success(t *testing.T) {
	mockSession := NewMockDiscordSession()
	notifier := NewNotifierWithSession(mockSession)

	err := notifier.SendChannelMessage("admin-chan", "tournament locked")
	require.NoError(t, err)

	last := mockSession.GetLastMessage()
	assert.Equal(t, "admin-chan", last.ChannelID)
	assert.Equal(t, "tournament locked", last.Content)
}

func TestGetSession_DialsExactlyOnce(t *testing.T) {
	mockSession := NewMockDiscordSession()
	dials := 0
	notifier := newNotifier()
	notifier.dial = func() (DiscordSession, error) {
		dials++
		return mockSession, nil
	}

	require.NoError(t, notifier.SendDirectMessage("user1", "first"))
	require.NoError(t, notifier.SendDirectMessage("user2", "second"))

	assert.Equal(t, 1, dials)
	assert.Len(t, mockSession.SentMessages, 2)
}

func TestGetSession_DialFailure(t *testing.T) {
	notifier := newNotifier()
	notifier.dial = func() (DiscordSession, error) {
		return nil, errors.New("401 unauthorized")
	}

	err := notifier.SendDirectMessage("user1", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to establish discord session")
}

func TestBroadcast_AllDelivered(t *testing.T) {
	mockSession := NewMockDiscordSession()
	notifier := NewNotifierWithSession(mockSession)

	recipients := []shared.Recipient{
		{SteamID: "s1", Username: "carry", DiscordID: "d1"},
		{SteamID: "s2", Username: "mid", DiscordID: "d2"},
		{SteamID: "s3", Username: "offlane", DiscordID: "d3"},
	}

	err := notifier.Broadcast(recipients, "lobby: dire-vs-radiant, pw: hunter2")
	require.NoError(t, err)
	assert.Len(t, mockSession.SentMessages, 3)
}

func TestBroadcast_PartialFailureReachesEveryoneElse(t *testing.T) {
	mockSession := NewMockDiscordSession()
	mockSession.SendErrFor["dm_d2"] = errors.New("cannot send messages to this user")
	notifier := NewNotifierWithSession(mockSession)

	recipients := []shared.Recipient{
		{SteamID: "s1", Username: "carry", DiscordID: "d1"},
		{SteamID: "s2", Username: "mid", DiscordID: "d2"},
		{SteamID: "s3", Username: "offlane", DiscordID: ""},
		{SteamID: "s4", Username: "support", DiscordID: "d4"},
	}

	err := notifier.Broadcast(recipients, "lobby details")
	require.Error(t, err)

	var partial *shared.PartialDeliveryError
	require.ErrorAs(t, err, &partial)
	require.Len(t, partial.Failed, 2)
	assert.Equal(t, "mid", partial.Failed[0].Recipient.Username)
	assert.Equal(t, "offlane", partial.Failed[1].Recipient.Username)
	assert.Equal(t, "no linked discord account", partial.Failed[1].Reason)

	// The two reachable recipients still got their copies
	assert.Len(t, mockSession.SentMessages, 2)
}
