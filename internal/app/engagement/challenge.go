package engagement

import (
	"context"
	"fmt"
	"time"

	"github.com/BigPhill11/pilot-program-learn-sub001/internal/domain"
)

// challengeCatalog is the ordered set of daily challenge templates.
// Order matters: the day of year indexes into it.
var challengeCatalog = []domain.ChallengeTemplate{
	{Type: domain.ChallengeSpeedSwiper, Name: "Speed Swiper", Icon: "⚡", Target: 20, XPReward: 50, Category: "volume",
		Description: "Swipe on 20 companies today"},
	{Type: domain.ChallengeDividendHunter, Name: "Dividend Hunter", Icon: "💵", Target: 5, XPReward: 75, Category: "income",
		Description: "Like 5 companies that pay a dividend"},
	{Type: domain.ChallengeTechSwiper, Name: "Tech Scout", Icon: "💻", Target: 10, XPReward: 60, Category: "sector",
		Description: "Swipe on 10 technology companies"},
	{Type: domain.ChallengeValueSeeker, Name: "Value Seeker", Icon: "🔍", Target: 5, XPReward: 75, Category: "valuation",
		Description: "Like 5 companies trading below 20x earnings"},
	{Type: domain.ChallengeSuperScout, Name: "Super Scout", Icon: "🌟", Target: 3, XPReward: 60, Category: "conviction",
		Description: "Super like 3 companies"},
	{Type: domain.ChallengeBlueChipBeliever, Name: "Blue Chip Believer", Icon: "🏛️", Target: 5, XPReward: 70, Category: "size",
		Description: "Like 5 companies worth more than $10B"},
}

// ChallengeCatalog returns a copy of the built-in catalog.
func ChallengeCatalog() []domain.ChallengeTemplate {
	out := make([]domain.ChallengeTemplate, len(challengeCatalog))
	copy(out, challengeCatalog)
	return out
}

// SelectForDate returns a fresh challenge for the calendar day of date,
// chosen as catalog[dayOfYear mod len]. The day is read in date's location.
func SelectForDate(date time.Time, catalog []domain.ChallengeTemplate) (domain.DailyChallenge, error) {
	if len(catalog) == 0 {
		return domain.DailyChallenge{}, fmt.Errorf("challenge: %w", domain.ErrEmptyCatalog)
	}
	tmpl := catalog[date.YearDay()%len(catalog)]
	day := domain.DayKey(date)
	return domain.DailyChallenge{
		ID:          fmt.Sprintf("challenge-%s-%s", tmpl.Type, day),
		Day:         day,
		Type:        tmpl.Type,
		Name:        tmpl.Name,
		Description: tmpl.Description,
		Icon:        tmpl.Icon,
		Target:      tmpl.Target,
		XPReward:    tmpl.XPReward,
		Category:    tmpl.Category,
	}, nil
}

// ProgressResult is the outcome of RecordProgress.
type ProgressResult struct {
	Challenge     domain.DailyChallenge `json:"challenge"`
	JustCompleted bool                  `json:"just_completed"`
	XPReward      int64                 `json:"xp_reward"`
}

// RecordProgress applies one swipe to a challenge. Completed challenges are
// frozen; progress never exceeds the target and the reward fires once.
func RecordProgress(ch domain.DailyChallenge, c domain.Candidate, a domain.SwipeAction) ProgressResult {
	if ch.Completed || !ch.Type.Eligible(c, a) {
		return ProgressResult{Challenge: ch}
	}

	ch.Progress = min(ch.Progress+1, ch.Target)
	ch.Completed = ch.Progress >= ch.Target

	res := ProgressResult{Challenge: ch}
	if ch.Completed {
		res.JustCompleted = true
		res.XPReward = ch.XPReward
	}
	return res
}

// ChallengeService keeps one challenge instance per user per day.
type ChallengeService struct {
	store   domain.GameStore
	catalog []domain.ChallengeTemplate
}

// NewChallengeService creates a challenge service. A nil catalog means the built-in one.
func NewChallengeService(store domain.GameStore, catalog []domain.ChallengeTemplate) *ChallengeService {
	if catalog == nil {
		catalog = ChallengeCatalog()
	}
	return &ChallengeService{store: store, catalog: catalog}
}

// ForDate returns the user's challenge for the day of date. The first call
// for a day creates and persists a fresh instance; later calls reuse it.
// Earlier days' challenges are left in the store untouched.
func (s *ChallengeService) ForDate(ctx context.Context, userID string, date time.Time) (domain.DailyChallenge, error) {
	day := domain.DayKey(date)
	existing, err := s.store.LoadChallenge(ctx, userID, day)
	if err != nil {
		return domain.DailyChallenge{}, fmt.Errorf("load challenge: %w", err)
	}
	if existing != nil {
		return *existing, nil
	}

	ch, err := SelectForDate(date, s.catalog)
	if err != nil {
		return domain.DailyChallenge{}, err
	}
	ch.UserID = userID
	if err := s.store.SaveChallenge(ctx, ch); err != nil {
		return domain.DailyChallenge{}, fmt.Errorf("save challenge: %w", err)
	}
	return ch, nil
}

// Catalog returns the templates this service selects from.
func (s *ChallengeService) Catalog() []domain.ChallengeTemplate {
	return s.catalog
}
