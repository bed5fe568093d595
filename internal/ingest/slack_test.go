package ingest

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/slack-go/slack"
)

// fakeSlackAPI serves canned channel and thread data.
type fakeSlackAPI struct {
	channels map[string]string // name -> ID
	history  []slack.Message
	replies  map[string][]slack.Message // thread ts -> messages (parent echoed first)
}

func (f *fakeSlackAPI) GetConversationsContext(ctx context.Context, params *slack.GetConversationsParameters) ([]slack.Channel, string, error) {
	var out []slack.Channel
	for name, id := range f.channels {
		ch := slack.Channel{}
		ch.ID = id
		ch.Name = name
		out = append(out, ch)
	}
	return out, "", nil
}

func (f *fakeSlackAPI) GetConversationHistoryContext(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error) {
	resp := &slack.GetConversationHistoryResponse{Messages: f.history}
	resp.HasMore = false
	return resp, nil
}

func (f *fakeSlackAPI) GetConversationRepliesContext(ctx context.Context, params *slack.GetConversationRepliesParameters) ([]slack.Message, bool, string, error) {
	return f.replies[params.Timestamp], false, "", nil
}

func slackMsg(ts, text string, replyCount int) slack.Message {
	m := slack.Message{}
	m.Timestamp = ts
	m.Text = text
	m.ReplyCount = replyCount
	return m
}

func TestSlackLoader_ResolveChannelID(t *testing.T) {
	t.Parallel()

	api := &fakeSlackAPI{channels: map[string]string{"drone-support": "C0123456789"}}
	l := NewSlackLoader(api, slog.Default())

	id, err := l.ResolveChannelID(context.Background(), "#drone-support")
	if err != nil {
		t.Fatalf("ResolveChannelID failed: %v", err)
	}
	if id != "C0123456789" {
		t.Errorf("id = %q, want C0123456789", id)
	}

	// IDs pass through without an API lookup.
	id, err = l.ResolveChannelID(context.Background(), "C0AAAAAAAAA")
	if err != nil {
		t.Fatalf("ResolveChannelID failed: %v", err)
	}
	if id != "C0AAAAAAAAA" {
		t.Errorf("id = %q, want passthrough", id)
	}

	if _, err := l.ResolveChannelID(context.Background(), "no-such-channel"); err == nil {
		t.Error("expected error for unknown channel name")
	}
}

func TestSlackLoader_LoadChannelRendersThreads(t *testing.T) {
	t.Parallel()

	parent := slackMsg("100.1", "Why does the GPS take minutes to lock indoors?", 2)
	loose := slackMsg("100.2", "lunch anyone?", 0)

	api := &fakeSlackAPI{
		channels: map[string]string{"drone-support": "C0123456789"},
		history:  []slack.Message{parent, loose},
		replies: map[string][]slack.Message{
			"100.1": {
				parent, // the replies API echoes the parent
				slackMsg("100.3", "GPS needs open sky.", 0),
				slackMsg("100.4", "Move near a window or go outside.", 0),
			},
		},
	}
	l := NewSlackLoader(api, slog.Default())

	units, err := l.LoadChannel(context.Background(), "#drone-support")
	if err != nil {
		t.Fatalf("LoadChannel failed: %v", err)
	}
	if len(units) != 1 {
		t.Fatalf("expected 1 thread unit, got %d", len(units))
	}

	u := units[0]
	if !u.Atomic {
		t.Error("thread units must be atomic")
	}
	if u.Source != "drone-support" {
		t.Errorf("Source = %q, want drone-support", u.Source)
	}
	want := "Q: Why does the GPS take minutes to lock indoors?\nA: GPS needs open sky. Move near a window or go outside."
	if u.Text != want {
		t.Errorf("Text = %q, want %q", u.Text, want)
	}
	if u.Metadata["thread_ts"] != "100.1" {
		t.Errorf("thread_ts = %q", u.Metadata["thread_ts"])
	}
	if strings.Count(u.Text, "Why does the GPS") != 1 {
		t.Error("parent echo from the replies API was not skipped")
	}
}

func TestIsThreadParent(t *testing.T) {
	t.Parallel()

	parent := slackMsg("1.0", "q", 3)
	if !isThreadParent(parent) {
		t.Error("message with replies should be a thread parent")
	}

	reply := slackMsg("1.1", "a", 0)
	reply.ThreadTimestamp = "1.0"
	if isThreadParent(reply) {
		t.Error("reply should not be a thread parent")
	}

	loose := slackMsg("2.0", "hi", 0)
	if isThreadParent(loose) {
		t.Error("unthreaded message should not be a thread parent")
	}
}
