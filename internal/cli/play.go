package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/spf13/cobra"

	"github.com/BigPhill11/pilot-program-learn-sub001/internal/app/session"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/daemon"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/domain"
)

func init() {
	playCmd.Flags().StringVarP(&playUser, "user", "u", "", "Player name (prompted when empty)")
	playCmd.Flags().StringVarP(&playMode, "mode", "m", "", "Game mode: classic, macro-aware, thesis-builder, time-horizon, challenge-run")
	rootCmd.AddCommand(playCmd)
}

var (
	playUser string
	playMode string
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play a swipe session in the terminal",
	RunE:  runPlay,
}

func runPlay(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	out := cmd.OutOrStdout()

	user := playUser
	if user == "" {
		u, err := promptForUser()
		if err != nil {
			return quietInterrupt(err)
		}
		user = u
	}
	mode := domain.GameMode(playMode)
	if mode == "" {
		m, err := promptForMode()
		if err != nil {
			return quietInterrupt(err)
		}
		mode = m
	}

	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	events, cancel := d.Hub.Subscribe(user)
	defer cancel()
	r := consoleRenderer{w: out}

	gs, err := d.Sessions.Start(ctx, user, mode)
	if err != nil {
		return err
	}
	defer d.Sessions.End(user)

	st := gs.State()
	fmt.Fprintln(out, renderScenario(st.Scenario))
	fmt.Fprintln(out, renderChallenge(st.Challenge))
	fmt.Fprintln(out, dimStyle.Render(renderStats(st.Stats, st.Level)))

	err = playLoop(ctx, out, gs, events, r)

	st = gs.State()
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderStats(st.Stats, st.Level))
	fmt.Fprintln(out, renderChallenge(st.Challenge))
	return quietInterrupt(err)
}

func playLoop(ctx context.Context, out io.Writer, gs *session.GameSession, events <-chan domain.Event, r domain.EventPublisher) error {
	for {
		c, ok := gs.Current()
		if !ok {
			again, err := promptConfirm("You've seen every company. Start the deck over?", false)
			if err != nil || !again {
				return err
			}
			gs.Reset()
			continue
		}

		st := gs.State()
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderCard(c, st.Deck.Cursor+1, st.Deck.Length))

		choice, err := promptForAction()
		if err != nil {
			return err
		}
		switch choice {
		case choiceQuit:
			return nil
		case choiceRewind:
			gs.Rewind()
			continue
		}

		in := session.SwipeInput{CandidateID: c.ID, Action: domain.SwipeAction(choice)}
		if in.Action != domain.ActionSkip {
			switch gs.Mode() {
			case domain.ModeThesisBuilder:
				if in.ThesisCount, err = promptForThesis(); err != nil {
					return err
				}
			case domain.ModeTimeHorizon:
				if in.Horizon, err = promptForHorizon(); err != nil {
					return err
				}
			}
		}

		res, err := gs.Swipe(ctx, in)
		moveOn(gs, in.Action, err)
		if err != nil {
			fmt.Fprintln(out, lossStyle.Render(err.Error()))
			if errors.Is(err, domain.ErrRunFinished) {
				again, perr := promptConfirm("Start a new run?", true)
				if perr != nil || !again {
					return perr
				}
				gs.Reset()
			}
			continue
		}
		fmt.Fprintln(out, renderSwipe(res))
		drain(events, r)
	}
}

// moveOn steps past a card the player is done with: one just skipped, or
// one already decided this round and reached again by rewinding.
func moveOn(gs *session.GameSession, action domain.SwipeAction, err error) bool {
	if (err == nil && action == domain.ActionSkip) || errors.Is(err, domain.ErrAlreadySwiped) {
		gs.Advance()
		return true
	}
	return false
}

// drain forwards buffered events without blocking.
func drain(events <-chan domain.Event, pub domain.EventPublisher) {
	for {
		select {
		case e, ok := <-events:
			if !ok {
				return
			}
			pub.Publish(e)
		default:
			return
		}
	}
}

func quietInterrupt(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return nil
	}
	return err
}
