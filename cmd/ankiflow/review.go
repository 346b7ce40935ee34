package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hiansit/ankiflow/internal/domain"
	"github.com/hiansit/ankiflow/internal/level"
	"github.com/hiansit/ankiflow/internal/library"
	"github.com/hiansit/ankiflow/internal/playlist"
)

func newReviewCommand(a *app) *cobra.Command {
	var speak bool
	cmd := &cobra.Command{
		Use:   "review SUBJECT_ID",
		Short: "Review the cards of a subject",
		Long: "Cards are shown front first. Press Enter to reveal the back, then\n" +
			"grade with 1 (again), 2 (hard), 3 (good) or 4 (easy). q quits.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subjectID, err := parseID(args[0])
			if err != nil {
				return err
			}
			lib, err := a.library(cmd.Context())
			if err != nil {
				return err
			}
			session, err := lib.StartSession(cmd.Context(), subjectID, a.cfg.Levels, playlist.ParseMode(a.cfg.Mode))
			if err != nil {
				return err
			}
			r := &reviewer{
				cmd:     cmd,
				session: session,
				in:      bufio.NewScanner(cmd.InOrStdin()),
				out:     cmd.OutOrStdout(),
				speak:   speak,
			}
			return r.run()
		},
	}
	cmd.Flags().String("mode", "", "playlist order (random|id_asc|last_studied)")
	cmd.Flags().IntSlice("levels", nil, "levels to review (default: all)")
	cmd.Flags().Float64("speech-rate", 1.0, "speech rate multiplier")
	cmd.Flags().Duration("speech-timeout", 0, "upper bound on one utterance")
	cmd.Flags().String("speech-command", "", "text-to-speech program")
	cmd.Flags().BoolVar(&speak, "speak", false, "read cards aloud")
	return cmd
}

type reviewer struct {
	cmd     *cobra.Command
	session *library.Session
	in      *bufio.Scanner
	out     io.Writer
	speak   bool
}

// prompt reads one trimmed line. ok is false at end of input or on q.
func (r *reviewer) prompt(label string) (string, bool) {
	fmt.Fprint(r.out, label)
	if !r.in.Scan() {
		fmt.Fprintln(r.out)
		return "", false
	}
	line := strings.TrimSpace(r.in.Text())
	if strings.EqualFold(line, "q") {
		return "", false
	}
	return line, true
}

func (r *reviewer) show(item domain.ItemWithProgress, side library.Side) {
	text, info := item.Front, item.FrontInfo
	if side == library.Back {
		text, info = item.Back, item.BackInfo
	}
	fmt.Fprintf(r.out, "  %s\n", text)
	if info != "" {
		fmt.Fprintf(r.out, "  (%s)\n", info)
	}
	if r.speak {
		<-r.session.Speak(item, side)
	}
}

func (r *reviewer) run() error {
	subject := r.session.Subject()
	if r.session.Status().Total == 0 {
		fmt.Fprintf(r.out, "No cards to review in %s.\n", subject.Name)
		return nil
	}

	reviewed := 0
	for {
		item, ok := r.session.Next()
		if !ok {
			break
		}
		status := r.session.Status()
		fmt.Fprintf(r.out, "\n[%d/%d] %s  level %d\n", status.Position, status.Total, subject.Name, item.Level)
		r.show(item, library.Front)

		if _, ok := r.prompt("Enter to reveal> "); !ok {
			break
		}
		r.show(item, library.Back)

		rating, ok := r.readRating()
		if !ok {
			break
		}
		next, err := r.session.Grade(r.cmd.Context(), item.ID, rating)
		if err != nil {
			return err
		}
		reviewed++
		fmt.Fprintf(r.out, "%s: level %d -> %d\n", rating, item.Level, next)
	}

	fmt.Fprintf(r.out, "Reviewed %d cards.\n", reviewed)
	return nil
}

func (r *reviewer) readRating() (level.Rating, bool) {
	for {
		line, ok := r.prompt("Grade 1-4> ")
		if !ok {
			return 0, false
		}
		n, err := strconv.Atoi(line)
		if err == nil {
			if rating, err := level.ParseRating(n); err == nil {
				return rating, true
			}
		}
		fmt.Fprintln(r.out, "Enter 1 (again), 2 (hard), 3 (good) or 4 (easy).")
	}
}
