package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/BigPhill11/pilot-program-learn-sub001/internal/app/session"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/daemon"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/domain"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/infra/feed"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/infra/memory"
)

func TestHumanCap(t *testing.T) {
	tests := []struct {
		in   decimal.Decimal
		want string
	}{
		{decimal.New(3, 12), "$3.0T"},
		{decimal.New(45, 9), "$45.0B"},
		{decimal.New(800, 6), "$800M"},
		{decimal.New(5000, 0), "$5000"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := humanCap(tt.in); got != tt.want {
				t.Errorf("humanCap(%s) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestValueFor(t *testing.T) {
	v, err := valueFor(actionOptions, actionOptions[2].label)
	if err != nil || v != string(domain.ActionSuperLike) {
		t.Errorf("valueFor = %q, %v", v, err)
	}
	if _, err := valueFor(actionOptions, "nope"); err == nil {
		t.Error("expected error for unknown label")
	}
}

func TestOptions_CoverEveryModeAndAction(t *testing.T) {
	for _, o := range modeOptions {
		if _, err := domain.ParseGameMode(o.value); err != nil {
			t.Errorf("mode option %q: %v", o.value, err)
		}
	}
	actions := 0
	for _, o := range actionOptions {
		if _, err := domain.ParseSwipeAction(o.value); err == nil {
			actions++
		}
	}
	if actions != 5 {
		t.Errorf("swipe actions offered = %d, want 5", actions)
	}
}

func TestRenderCard(t *testing.T) {
	out := renderCard(domain.Candidate{
		ID: "KO", Name: "Coca-Cola", Ticker: "KO", Sector: "Consumer Staples",
		MarketCap: decimal.New(260, 9), PERatio: 24.5, DividendYield: 3.1,
	}, 2, 10)
	for _, want := range []string{"Coca-Cola (KO)", "2/10", "Consumer Staples", "$260.0B", "24.5x", "3.10%"} {
		if !strings.Contains(out, want) {
			t.Errorf("card missing %q:\n%s", want, out)
		}
	}
}

func TestConsoleRenderer(t *testing.T) {
	var buf bytes.Buffer
	r := consoleRenderer{w: &buf}

	r.Publish(domain.Event{Type: domain.EventLevelUp, Payload: domain.LevelUpPayload{From: 1, To: 2}})
	r.Publish(domain.Event{Type: domain.EventAchievementUnlocked, Payload: domain.AchievementDef{Name: "First Look"}})
	r.Publish(domain.Event{Type: domain.EventSwipeScored, Payload: domain.SwipeScoredPayload{TotalXP: 10}})

	out := buf.String()
	if !strings.Contains(out, "Level up! 1 → 2") {
		t.Errorf("missing level up: %q", out)
	}
	if !strings.Contains(out, "First Look") {
		t.Errorf("missing achievement: %q", out)
	}
	if strings.Count(out, "\n") != 2 {
		t.Errorf("swipe_scored should not print, got %q", out)
	}
}

func TestDrain(t *testing.T) {
	ch := make(chan domain.Event, 4)
	ch <- domain.Event{Type: domain.EventLevelUp, Payload: domain.LevelUpPayload{From: 1, To: 2}}
	ch <- domain.Event{Type: domain.EventRunFinished, Payload: domain.RunFinishedPayload{FinalScore: 60}}

	var buf bytes.Buffer
	drain(ch, consoleRenderer{w: &buf})
	if len(ch) != 0 {
		t.Errorf("channel not drained: %d left", len(ch))
	}
	if !strings.Contains(buf.String(), "score 60") {
		t.Errorf("output = %q", buf.String())
	}

	close(ch)
	drain(ch, consoleRenderer{w: &buf}) // returns on closed channel
}

func TestRootCommands(t *testing.T) {
	want := map[string]bool{"serve": false, "play": false, "scenario": false, "stats": false,
		"challenge": false, "leaderboard": false, "config": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestScenarioCommand(t *testing.T) {
	t.Setenv("PILOT_HOME", t.TempDir())
	t.Setenv("PILOT_POSTGRES_DSN", "")

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"scenario", "--date", "2025-01-01"})
	defer rootCmd.SetArgs(nil)

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(buf.String(), "Rising Rates") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestApplyServeFlags(t *testing.T) {
	t.Setenv("PILOT_HOME", t.TempDir())
	serveHost, servePort, serveDriver, serveFeed = "0.0.0.0", 9999, "memory", "https://deck.example.com/v1/deck.json"
	defer func() { serveHost, servePort, serveDriver, serveFeed = "", 0, "", "" }()

	cfg := daemon.DefaultConfig()
	applyServeFlags(&cfg)
	if cfg.API.Host != "0.0.0.0" || cfg.API.Port != 9999 {
		t.Errorf("api = %+v", cfg.API)
	}
	if cfg.Storage.Driver != daemon.DriverMemory || cfg.Game.FeedURL != serveFeed {
		t.Errorf("storage/feed not overridden: %+v %+v", cfg.Storage, cfg.Game)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestMoveOn(t *testing.T) {
	mgr, err := session.NewManager(session.Deps{
		Store: memory.NewStore(),
		Source: feed.NewStaticSource([]domain.Candidate{
			{ID: "AAA", Name: "Alpha", Sector: "Technology", MarketCap: decimal.New(5, 9)},
			{ID: "BBB", Name: "Beta", Sector: "Energy", MarketCap: decimal.New(5, 9)},
		}),
	}, session.Config{})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	gs, err := mgr.Start(context.Background(), "dana", domain.ModeClassic)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	ctx := context.Background()

	// Skip leaves the cursor on the card; the loop steps past it.
	_, err = gs.Swipe(ctx, session.SwipeInput{Action: domain.ActionSkip})
	if !moveOn(gs, domain.ActionSkip, err) {
		t.Fatalf("skip should move on (err %v)", err)
	}
	if c, _ := gs.Current(); c.ID != "BBB" {
		t.Errorf("current after skip = %s, want BBB", c.ID)
	}

	// A rewound card that was already decided is stepped over, not re-scored.
	gs.Rewind()
	_, err = gs.Swipe(ctx, session.SwipeInput{Action: domain.ActionLike})
	if !errors.Is(err, domain.ErrAlreadySwiped) {
		t.Fatalf("swipe after rewind: err = %v, want ErrAlreadySwiped", err)
	}
	if !moveOn(gs, domain.ActionLike, err) {
		t.Error("already swiped card should be stepped over")
	}
	if c, _ := gs.Current(); c.ID != "BBB" {
		t.Errorf("current = %s, want BBB", c.ID)
	}
	if n := gs.Stats().SwipeCount; n != 1 {
		t.Errorf("SwipeCount = %d, want 1", n)
	}

	_, err = gs.Swipe(ctx, session.SwipeInput{Action: domain.ActionPass})
	if moveOn(gs, domain.ActionPass, err) {
		t.Error("a pass already advances the deck")
	}
}
