package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cpunion/reply-bot/pkg/compose"
	"github.com/cpunion/reply-bot/pkg/event"
	"github.com/cpunion/reply-bot/pkg/ingest"
	"github.com/cpunion/reply-bot/pkg/intent"
	"github.com/cpunion/reply-bot/pkg/store"
	"github.com/cpunion/reply-bot/pkg/types"
)

type postFlags struct {
	id         string
	author     string
	images     []string
	htmlPath   string
	threadPath string
}

func (f *postFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.id, "id", "", "post id")
	cmd.Flags().StringVar(&f.author, "author", "", "author handle")
	cmd.Flags().StringSliceVar(&f.images, "image", nil, "image URL or path (repeatable)")
	cmd.Flags().StringVar(&f.htmlPath, "html", "", "read the post from a saved status page")
	cmd.Flags().StringVar(&f.threadPath, "thread", "", "thread context JSON file")
}

// post builds the post from the flags and positional text. A page given with
// --html supplies anything the flags leave empty.
func (f *postFlags) post(args []string) (types.Post, error) {
	var post types.Post
	if f.htmlPath != "" {
		file, err := os.Open(f.htmlPath)
		if err != nil {
			return post, err
		}
		defer file.Close()
		if post, err = ingest.ParsePostHTML(file); err != nil {
			return post, fmt.Errorf("%s: %w", f.htmlPath, err)
		}
	}

	if text := strings.TrimSpace(strings.Join(args, " ")); text != "" {
		post.Text = text
	}
	if f.id != "" {
		post.ID = f.id
	}
	if f.author != "" {
		post.AuthorID = f.author
	}
	if len(f.images) > 0 {
		post.ImageRefs = f.images
		post.HasImages = true
	}
	if f.threadPath != "" {
		raw, err := os.ReadFile(f.threadPath)
		if err != nil {
			return post, err
		}
		var tc types.ThreadContext
		if err := json.Unmarshal(raw, &tc); err != nil {
			return post, fmt.Errorf("parse thread %s: %w", f.threadPath, err)
		}
		if tc.ThreadLength == 0 {
			tc.ThreadLength = len(tc.FullConversation)
		}
		post.Thread = &tc
	}

	if strings.TrimSpace(post.Text) == "" {
		return post, errors.New("post text is required")
	}
	return post, nil
}

func newComposeCmd(a *app) *cobra.Command {
	var (
		pf       postFlags
		noPrefix bool
		trace    bool
		audit    bool
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "compose [TEXT]",
		Short: "Decide on a reply to one post",
		Example: `  replybot compose --author @ash "what is a psa 10 charizard worth now"
  replybot compose --html status.html --audit`,
		RunE: func(cmd *cobra.Command, args []string) error {
			post, err := pf.post(args)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			opts := compose.Options{NoPrefix: noPrefix || a.cfg.Composer.NoPrefix}
			if trace {
				opts.Trace = func(s compose.State, detail string) {
					a.log.WithField("state", string(s)).Info(detail)
				}
			}

			d, err := a.newComposer(ctx).Decide(ctx, post, opts)
			if err != nil {
				return err
			}

			if audit {
				if err := a.record(cmd, post, d); err != nil {
					return err
				}
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(d.Response)
			}
			renderDecision(cmd.OutOrStdout(), d)
			return nil
		},
	}
	pf.register(cmd)
	cmd.Flags().BoolVar(&noPrefix, "no-prefix", false, "omit the persona lead-in")
	cmd.Flags().BoolVar(&trace, "trace", false, "log each pipeline state")
	cmd.Flags().BoolVar(&audit, "audit", false, "record the decision in the audit database")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the response as JSON (null for no reply)")
	return cmd
}

func (a *app) record(cmd *cobra.Command, post types.Post, d compose.Decision) error {
	if a.cfg.Audit.DBPath == "" {
		return errors.New("audit.db_path is not configured")
	}
	s, err := store.Open(a.cfg.Audit.DBPath)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.RecordDecision(cmd.Context(), post, d)
}

func newClassifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "classify TEXT",
		Short: "Rank the intents of a post",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			res := intent.NewDefault().Classify(strings.Join(args, " "))
			renderClassification(cmd.OutOrStdout(), res)
		},
	}
}

func newEventCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "event TEXT",
		Short: "Check whether a post announces a local event",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			renderEvent(cmd.OutOrStdout(), event.NewDetector().Detect(strings.Join(args, " ")))
		},
	}
}
