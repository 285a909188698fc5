package sportmonks

import (
	"bytes"
	"strings"

	sonic "github.com/bytedance/sonic"
)

type fixtureListEnvelope struct {
	Data []fixtureDetails `json:"data"`
}

type fixtureEnvelope struct {
	Data fixtureDetails `json:"data"`
}

type oddsEnvelope struct {
	Data []oddItem `json:"data"`
}

type fixtureDetails struct {
	ID           int64                `json:"id"`
	StartingAt   string               `json:"starting_at"`
	StateID      int64                `json:"state_id"`
	ResultInfo   string               `json:"result_info"`
	Participants []fixtureParticipant `json:"participants"`
	Scores       []fixtureScoreItem   `json:"scores"`
	State        relation[stateRef]   `json:"state"`
	Periods      []fixturePeriod      `json:"periods"`
}

type fixtureParticipant struct {
	ID   int64                  `json:"id"`
	Name string                 `json:"name"`
	Meta fixtureParticipantMeta `json:"meta"`
}

type fixtureParticipantMeta struct {
	Location string `json:"location"`
}

type fixtureScoreItem struct {
	ParticipantID int64          `json:"participant_id"`
	Description   string         `json:"description"`
	Score         map[string]any `json:"score"`
}

type stateRef struct {
	ID    int64  `json:"id"`
	State string `json:"state"`
}

type fixturePeriod struct {
	Ticking   bool `json:"ticking"`
	Minutes   int  `json:"minutes"`
	TimeAdded int  `json:"time_added"`
	SortOrder int  `json:"sort_order"`
}

type oddItem struct {
	FixtureID   int64  `json:"fixture_id"`
	MarketID    int64  `json:"market_id"`
	BookmakerID int64  `json:"bookmaker_id"`
	Label       string `json:"label"`
	Value       string `json:"value"`
}

func (s fixtureScoreItem) goals() (int, bool) {
	for _, key := range []string{"goals", "score", "value", "total"} {
		value, ok := s.Score[key]
		if !ok || value == nil {
			continue
		}
		switch typed := value.(type) {
		case float64:
			if typed >= 0 {
				return int(typed), true
			}
		case int64:
			if typed >= 0 {
				return int(typed), true
			}
		case int:
			if typed >= 0 {
				return typed, true
			}
		}
	}
	return 0, false
}

func (s fixtureScoreItem) weight() int {
	switch strings.ToUpper(strings.TrimSpace(s.Description)) {
	case "CURRENT":
		return 4
	case "2ND_HALF", "FT":
		return 3
	case "1ST_HALF", "HT":
		return 2
	default:
		return 1
	}
}

// relation decodes a Sportmonks include that may be wrapped in {"data": ...} or inlined.
type relation[T any] struct {
	Data T
	Set  bool
}

func (r *relation[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		r.Set = false
		return nil
	}

	var wrapped struct {
		Data *T `json:"data"`
	}
	if err := sonic.Unmarshal(trimmed, &wrapped); err == nil && wrapped.Data != nil {
		r.Data = *wrapped.Data
		r.Set = true
		return nil
	}

	var direct T
	if err := sonic.Unmarshal(trimmed, &direct); err != nil {
		return err
	}
	r.Data = direct
	r.Set = true
	return nil
}
