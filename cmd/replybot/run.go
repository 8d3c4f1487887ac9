package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cpunion/reply-bot/pkg/agent"
	"github.com/cpunion/reply-bot/pkg/logging"
	"github.com/cpunion/reply-bot/pkg/outbox"
	"github.com/cpunion/reply-bot/pkg/replylog"
	"github.com/cpunion/reply-bot/pkg/store"
	"github.com/cpunion/reply-bot/pkg/types"
	"github.com/cpunion/reply-bot/pkg/watchdog"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		input     string
		statePath string
		outboxDir string
		retention time.Duration
		watch     bool
		noPrefix  bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the agent over a stream of posts",
		Long: `run reads posts as JSON lines, decides on each one and writes the replies
as JSON lines. Every reply is logged to watchdog.log_path before it is
written. With --watch an in-process watchdog stops the agent on the first
reply that breaks policy.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := io.Reader(os.Stdin)
			if input != "" && input != "-" {
				f, err := os.Open(input)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			a.serveMetrics(ctx, a.cfg.Metrics.Addr)

			cfg := agent.DefaultConfig()
			cfg.NoPrefix = noPrefix || a.cfg.Composer.NoPrefix
			cfg.DataPath = statePath
			ag, err := agent.New(cfg, a.newComposer(ctx), a.log)
			if err != nil {
				return err
			}
			if retention > 0 {
				if n := ag.State().Prune(time.Now(), retention); n > 0 {
					a.log.WithField("pruned", n).Info("forgot old replies")
				}
			}

			replies, err := replylog.Open(a.cfg.Watchdog.LogPath)
			if err != nil {
				return err
			}
			defer replies.Close()
			ag.SetReplyLog(replies)

			if a.cfg.Audit.DBPath != "" {
				s, err := store.Open(a.cfg.Audit.DBPath)
				if err != nil {
					return err
				}
				defer s.Close()
				ag.SetRecorder(s)
			}

			sink := func(agent.Outgoing) error { return nil }
			if outboxDir != "" {
				ob, err := outbox.Open(outbox.Config{Dir: outboxDir})
				if err != nil {
					return err
				}
				defer ob.Close()
				sink = func(out agent.Outgoing) error { return ob.Append(out) }
			}

			agentCtx, stopAgent := context.WithCancel(ctx)
			defer stopAgent()

			var (
				wg       sync.WaitGroup
				watchErr error
			)
			stopWatch := func() {}
			if watch {
				src, err := watchdog.NewFileSource(a.cfg.Watchdog.LogPath, false)
				if err != nil {
					return err
				}
				defer src.Close()
				watchCtx, cancelWatch := context.WithCancel(ctx)
				defer cancelWatch()
				w := watchdog.New(src, watchdog.CancelSupervisor{Cancel: stopAgent}, watchdog.Config{Target: "agent"}, a.log, a.metrics)
				wg.Add(1)
				go func() {
					defer wg.Done()
					watchErr = w.Run(watchCtx)
				}()
				stopWatch = func() {
					cancelWatch()
					wg.Wait()
				}
			}

			if err := ag.Start(agentCtx); err != nil {
				return err
			}
			printed := make(chan struct{})
			go func() {
				defer close(printed)
				deliver(cmd.OutOrStdout(), ag, sink, a.log)
			}()

			readErr := feed(agentCtx, in, ag)
			if readErr != nil {
				stopAgent()
			} else {
				// No more posts: the loop drains the inbox and exits.
				close(ag.Inbox)
			}
			<-ag.Done()
			stopErr := ag.Stop()
			<-printed
			stopWatch()

			st := ag.Stats()
			a.log.WithFields(logging.Fields{
				"received":  st.Received,
				"replied":   st.Replied,
				"skipped":   st.Skipped,
				"duplicate": st.Duplicate,
				"errors":    st.Errors,
			}).Info("agent finished")

			return errors.Join(readErr, stopErr, watchErr)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "-", "JSON lines of posts (- for stdin)")
	cmd.Flags().StringVar(&statePath, "state", "", "agent state directory (memory only when empty)")
	cmd.Flags().DurationVar(&retention, "retention", 30*24*time.Hour, "forget replies older than this (0 keeps all)")
	cmd.Flags().StringVar(&outboxDir, "outbox", "", "also append replies to a sharded outbox in this directory")
	cmd.Flags().BoolVar(&watch, "watch", false, "run a watchdog over the reply log")
	cmd.Flags().BoolVar(&noPrefix, "no-prefix", false, "omit the persona lead-in")
	return cmd
}

// feed submits every post in r until r ends or ctx is cancelled.
func feed(ctx context.Context, r io.Reader, ag *agent.Agent) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var post types.Post
		if err := json.Unmarshal(raw, &post); err != nil {
			return fmt.Errorf("input line %d: %w", line, err)
		}
		if err := ag.Submit(ctx, post); err != nil {
			if errors.Is(err, agent.ErrStopped) || ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
	return scanner.Err()
}

// deliver writes replies until the agent stops, then drains what is left.
func deliver(w io.Writer, ag *agent.Agent, sink func(agent.Outgoing) error, log logrus.FieldLogger) {
	enc := json.NewEncoder(w)
	send := func(out agent.Outgoing) {
		if err := sink(out); err != nil {
			log.WithError(err).WithField("post", out.PostID).Error("outbox write failed")
		}
		_ = enc.Encode(out)
	}

	done := ag.Done()
	for {
		select {
		case out := <-ag.Outbox:
			send(out)
		case <-done:
			for {
				select {
				case out := <-ag.Outbox:
					send(out)
				default:
					return
				}
			}
		}
	}
}
