package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/slack-go/slack"
)

// SlackAPI is the subset of the Slack Web API the loader needs.
// *slack.Client satisfies it; tests substitute a fake.
type SlackAPI interface {
	GetConversationsContext(ctx context.Context, params *slack.GetConversationsParameters) ([]slack.Channel, string, error)
	GetConversationHistoryContext(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error)
	GetConversationRepliesContext(ctx context.Context, params *slack.GetConversationRepliesParameters) ([]slack.Message, bool, string, error)
}

// SlackLoader fetches live channel history via the Slack Web API and turns
// each thread (parent message plus replies) into one atomic Unit.
type SlackLoader struct {
	api SlackAPI
	log *slog.Logger
}

// NewSlackLoader constructs a SlackLoader over the given API client.
func NewSlackLoader(api SlackAPI, log *slog.Logger) *SlackLoader {
	return &SlackLoader{api: api, log: log}
}

// ResolveChannelID turns a channel name (with or without a leading '#') into
// a channel ID. Values that already look like IDs are returned unchanged.
func (l *SlackLoader) ResolveChannelID(ctx context.Context, channel string) (string, error) {
	name := strings.TrimPrefix(channel, "#")
	if looksLikeChannelID(name) {
		return name, nil
	}

	params := &slack.GetConversationsParameters{
		ExcludeArchived: true,
		Limit:           200,
		Types:           []string{"public_channel", "private_channel"},
	}
	for {
		channels, cursor, err := l.api.GetConversationsContext(ctx, params)
		if err != nil {
			return "", fmt.Errorf("ingest: failed to list Slack channels: %w", err)
		}
		for _, ch := range channels {
			if ch.Name == name {
				return ch.ID, nil
			}
		}
		if cursor == "" {
			return "", fmt.Errorf("ingest: Slack channel %q not found", channel)
		}
		params.Cursor = cursor
	}
}

// looksLikeChannelID reports whether s has the shape of a Slack conversation
// ID: a 'C' or 'G' prefix followed by uppercase alphanumerics.
func looksLikeChannelID(s string) bool {
	if len(s) < 9 || (s[0] != 'C' && s[0] != 'G') {
		return false
	}
	for _, r := range s[1:] {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// LoadChannel fetches the channel's message history and renders each thread
// as one Q&A unit. Parent text becomes the question; replies, fetched via
// the replies API, become the answer. Unthreaded messages are skipped.
func (l *SlackLoader) LoadChannel(ctx context.Context, channel string) ([]Unit, error) {
	channelID, err := l.ResolveChannelID(ctx, channel)
	if err != nil {
		return nil, err
	}

	var units []Unit
	params := &slack.GetConversationHistoryParameters{
		ChannelID: channelID,
		Limit:     200,
	}
	for {
		resp, err := l.api.GetConversationHistoryContext(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("ingest: failed to fetch Slack history: %w", err)
		}

		for _, msg := range resp.Messages {
			if !isThreadParent(msg) {
				continue
			}
			u, err := l.loadThread(ctx, channelID, channel, msg)
			if err != nil {
				return nil, err
			}
			if u != nil {
				units = append(units, *u)
			}
		}

		if !resp.HasMore || resp.ResponseMetaData.NextCursor == "" {
			break
		}
		params.Cursor = resp.ResponseMetaData.NextCursor
	}

	l.log.Info("ingest: loaded Slack channel",
		slog.String("channel", channel),
		slog.Int("threads", len(units)),
	)
	return units, nil
}

// isThreadParent reports whether msg starts a thread with at least one reply.
func isThreadParent(msg slack.Message) bool {
	return msg.ReplyCount > 0 && (msg.ThreadTimestamp == "" || msg.ThreadTimestamp == msg.Timestamp)
}

// loadThread fetches a thread's replies and renders the Q&A unit.
func (l *SlackLoader) loadThread(ctx context.Context, channelID, channel string, parent slack.Message) (*Unit, error) {
	question := strings.TrimSpace(parent.Text)
	if question == "" {
		return nil, nil
	}

	var answers []string
	params := &slack.GetConversationRepliesParameters{
		ChannelID: channelID,
		Timestamp: parent.Timestamp,
		Limit:     200,
	}
	for {
		msgs, hasMore, cursor, err := l.api.GetConversationRepliesContext(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("ingest: failed to fetch thread replies: %w", err)
		}
		for _, m := range msgs {
			if m.Timestamp == parent.Timestamp {
				continue // the replies API echoes the parent back
			}
			if text := strings.TrimSpace(m.Text); text != "" {
				answers = append(answers, text)
			}
		}
		if !hasMore || cursor == "" {
			break
		}
		params.Cursor = cursor
	}

	var b strings.Builder
	b.WriteString("Q: ")
	b.WriteString(question)
	if len(answers) > 0 {
		b.WriteString("\nA: ")
		b.WriteString(strings.Join(answers, " "))
	}

	return &Unit{
		Text:   b.String(),
		Source: strings.TrimPrefix(channel, "#"),
		Atomic: true,
		Metadata: map[string]string{
			"doc_type":  "slack_thread",
			"thread_ts": parent.Timestamp,
		},
	}, nil
}
