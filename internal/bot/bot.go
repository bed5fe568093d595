// Package bot runs the Slack Socket Mode front end. Mentions of the bot are
// answered in-thread by the answer pipeline, and every interaction is logged
// as a JSON file.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"golang.org/x/sync/errgroup"

	"github.com/aerostream/aeros/internal/answer"
)

// apologyMessage is posted when the pipeline fails; the error itself stays in
// the server logs.
const apologyMessage = "Sorry, I ran into a problem answering that. Please try again in a moment."

// mentionPattern matches Slack user mention markup like <@U0123ABCD>.
var mentionPattern = regexp.MustCompile(`<@[A-Z0-9]+>`)

// Answerer runs the answer pipeline for one query. *answer.Engine satisfies it.
type Answerer interface {
	Answer(ctx context.Context, query string) (*answer.Result, error)
}

// Poster posts messages to Slack. *slack.Client satisfies it.
type Poster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// Bot wires the Socket Mode event stream to the answer pipeline.
type Bot struct {
	sm           *socketmode.Client
	poster       Poster
	answerer     Answerer
	interactions *InteractionLogger
	log          *slog.Logger
}

// New constructs a Bot over the given Slack tokens. botToken is the xoxb-
// Web API token; appToken is the xapp- Socket Mode token.
func New(botToken, appToken string, answerer Answerer, interactions *InteractionLogger, log *slog.Logger) (*Bot, error) {
	if botToken == "" {
		return nil, fmt.Errorf("bot: SLACK_BOT_TOKEN must be set")
	}
	if appToken == "" {
		return nil, fmt.Errorf("bot: SLACK_APP_TOKEN must be set")
	}
	if !strings.HasPrefix(appToken, "xapp-") {
		return nil, fmt.Errorf("bot: SLACK_APP_TOKEN must start with xapp-")
	}

	api := slack.New(botToken, slack.OptionAppLevelToken(appToken))
	sm := socketmode.New(api)

	return &Bot{
		sm:           sm,
		poster:       api,
		answerer:     answerer,
		interactions: interactions,
		log:          log,
	}, nil
}

// Run connects to Slack and processes events until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	b.log.Info("bot: starting Socket Mode connection")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.sm.RunContext(gctx)
	})
	g.Go(func() error {
		return b.eventLoop(gctx)
	})
	return g.Wait()
}

// eventLoop dispatches Socket Mode events. Mentions are handled in their own
// goroutine so a slow generation does not stall acknowledgements.
func (b *Bot) eventLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-b.sm.Events:
			if !ok {
				return nil
			}
			switch evt.Type {
			case socketmode.EventTypeEventsAPI:
				apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
				if !ok {
					continue
				}
				if evt.Request != nil {
					b.sm.Ack(*evt.Request)
				}
				if apiEvent.Type != slackevents.CallbackEvent {
					continue
				}
				if mention, ok := apiEvent.InnerEvent.Data.(*slackevents.AppMentionEvent); ok {
					go b.handleMention(ctx, mention)
				}
			case socketmode.EventTypeConnectionError:
				b.log.Warn("bot: Slack connection error, retrying")
			case socketmode.EventTypeConnected:
				b.log.Info("bot: connected to Slack")
			}
		}
	}
}

// handleMention answers one app_mention event in its thread.
func (b *Bot) handleMention(ctx context.Context, ev *slackevents.AppMentionEvent) {
	query := StripMentions(ev.Text)
	threadTS := ev.ThreadTimeStamp
	if threadTS == "" {
		threadTS = ev.TimeStamp
	}

	b.log.Info("bot: received query",
		slog.String("channel", ev.Channel),
		slog.String("thread_ts", threadTS),
	)

	if _, _, err := b.poster.PostMessageContext(ctx, ev.Channel,
		slack.MsgOptionText("Thinking...", false),
		slack.MsgOptionTS(threadTS)); err != nil {
		b.log.Warn("bot: failed to post acknowledgement", slog.String("error", err.Error()))
	}

	res, err := b.answerer.Answer(ctx, query)
	if err != nil {
		b.log.Error("bot: pipeline failed", slog.String("error", err.Error()))
		b.post(ctx, ev.Channel, threadTS, apologyMessage)
		return
	}

	if b.interactions != nil {
		b.interactions.Log(query, res)
	}
	b.post(ctx, ev.Channel, threadTS, res.Answer)
}

// post sends a threaded reply, logging failures.
func (b *Bot) post(ctx context.Context, channel, threadTS, text string) {
	if _, _, err := b.poster.PostMessageContext(ctx, channel,
		slack.MsgOptionText(text, false),
		slack.MsgOptionTS(threadTS)); err != nil {
		b.log.Error("bot: failed to post reply",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}

// StripMentions removes Slack user mention markup from a query.
func StripMentions(text string) string {
	return strings.TrimSpace(mentionPattern.ReplaceAllString(text, ""))
}
