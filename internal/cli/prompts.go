package cli

import (
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"

	"github.com/BigPhill11/pilot-program-learn-sub001/internal/domain"
)

// Choices in the play loop beyond the five swipe actions.
const (
	choiceRewind = "rewind"
	choiceQuit   = "quit"
)

type option struct {
	label string
	value string
}

var modeOptions = []option{
	{"Classic: base XP only", string(domain.ModeClassic)},
	{"Macro aware: bonus for reading today's scenario", string(domain.ModeMacroAware)},
	{"Thesis builder: bonus for tagging 2-3 reasons", string(domain.ModeThesisBuilder)},
	{"Time horizon: bonus for picking the right horizon", string(domain.ModeTimeHorizon)},
	{"Challenge run: 10 swipes, scored on judgement", string(domain.ModeChallengeRun)},
}

var actionOptions = []option{
	{"👍 Like", string(domain.ActionLike)},
	{"👎 Pass", string(domain.ActionPass)},
	{"🌟 Super like", string(domain.ActionSuperLike)},
	{"⏭  Skip (no XP, card stays unmatched)", string(domain.ActionSkip)},
	{"🚫 Never", string(domain.ActionNever)},
	{"↩  Rewind", choiceRewind},
	{"Quit", choiceQuit},
}

var horizonOptions = []option{
	{"No horizon", string(domain.HorizonNone)},
	{"Short term (under a year)", string(domain.HorizonShort)},
	{"Long term (five years and more)", string(domain.HorizonLong)},
}

var thesisTags = []string{
	"Strong brand", "Growing revenue", "Cheap valuation", "Pays a dividend",
	"Macro tailwind", "Competitive moat",
}

func labels(opts []option) []string {
	out := make([]string, len(opts))
	for i, o := range opts {
		out[i] = o.label
	}
	return out
}

// valueFor maps a selected label back to its value.
func valueFor(opts []option, label string) (string, error) {
	for _, o := range opts {
		if o.label == label {
			return o.value, nil
		}
	}
	return "", fmt.Errorf("unknown choice %q", label)
}

func selectOption(message string, opts []option, help string) (string, error) {
	var selected string
	prompt := &survey.Select{
		Message: message,
		Options: labels(opts),
		Help:    help,
	}
	if err := survey.AskOne(prompt, &selected); err != nil {
		return "", err
	}
	return valueFor(opts, selected)
}

func promptForUser() (string, error) {
	var user string
	prompt := &survey.Input{
		Message: "Player name:",
		Help:    "Your progress is saved under this name.",
	}
	err := survey.AskOne(prompt, &user, survey.WithValidator(func(val interface{}) error {
		if strings.TrimSpace(val.(string)) == "" {
			return fmt.Errorf("name cannot be empty")
		}
		return nil
	}))
	return strings.TrimSpace(user), err
}

func promptForMode() (domain.GameMode, error) {
	v, err := selectOption("Game mode:", modeOptions, "Modes add bonus XP on top of the base score for each swipe.")
	return domain.GameMode(v), err
}

func promptForAction() (string, error) {
	return selectOption("Your call:", actionOptions, "Like and super like add the company to your matches.")
}

func promptForHorizon() (domain.Horizon, error) {
	v, err := selectOption("Investment horizon:", horizonOptions, "Long horizons pay off in favourable scenarios; short ones otherwise.")
	return domain.Horizon(v), err
}

// promptForThesis returns how many thesis tags were selected.
func promptForThesis() (int, error) {
	var selected []string
	prompt := &survey.MultiSelect{
		Message: "Why? Pick 2-3 reasons:",
		Options: thesisTags,
	}
	if err := survey.AskOne(prompt, &selected); err != nil {
		return 0, err
	}
	return len(selected), nil
}

func promptConfirm(message string, def bool) (bool, error) {
	ok := def
	err := survey.AskOne(&survey.Confirm{Message: message, Default: def}, &ok)
	return ok, err
}
