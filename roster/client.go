package roster

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/robonova/competition-core/models"
	"github.com/robonova/competition-core/seeding"
)

// Client talks to the registration service, which owns teams, judges and
// rubrics. The core only reads from it.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, dst interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("registration service request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return ErrRosterEntryNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("registration service returned %d for %s", resp.StatusCode, path)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

type entrantPayload struct {
	TeamID             int      `json:"team_id"`
	PriorPlacement     *int     `json:"prior_placement"`
	QualificationScore *float64 `json:"qualification_score"`
	BeatenTeamIDs      []int    `json:"beaten_team_ids"`
}

// Entrants returns seeding inputs for every team registered for the
// tournament.
func (c *Client) Entrants(ctx context.Context, tournamentID int) ([]seeding.Input, error) {
	var payload struct {
		Entrants []entrantPayload `json:"entrants"`
	}
	path := fmt.Sprintf("/tournaments/%d/entrants", tournamentID)
	if err := c.get(ctx, path, nil, &payload); err != nil {
		return nil, err
	}
	inputs := make([]seeding.Input, len(payload.Entrants))
	for i, e := range payload.Entrants {
		inputs[i] = seeding.Input{
			TeamID:             e.TeamID,
			PriorPlacement:     e.PriorPlacement,
			QualificationScore: e.QualificationScore,
			BeatenTeamIDs:      e.BeatenTeamIDs,
		}
	}
	return inputs, nil
}

func (c *Client) TeamExists(ctx context.Context, teamID int) (bool, error) {
	var payload struct {
		ID int `json:"id"`
	}
	err := c.get(ctx, fmt.Sprintf("/teams/%d", teamID), nil, &payload)
	if err == ErrRosterEntryNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *Client) Judge(ctx context.Context, judgeID int) (*models.Judge, error) {
	var judge models.Judge
	if err := c.get(ctx, fmt.Sprintf("/judges/%d", judgeID), nil, &judge); err != nil {
		return nil, err
	}
	return &judge, nil
}

// AvailableAt asks the registration service whether a judge is free for
// a slot.
func (c *Client) AvailableAt(ctx context.Context, judgeID int, slot models.TimeSlot) (bool, error) {
	query := url.Values{}
	query.Set("start", slot.Start.Format(time.RFC3339))
	query.Set("end", slot.End.Format(time.RFC3339))
	var payload struct {
		Available bool `json:"available"`
	}
	if err := c.get(ctx, fmt.Sprintf("/judges/%d/availability", judgeID), query, &payload); err != nil {
		return false, err
	}
	return payload.Available, nil
}

func (c *Client) Rubric(ctx context.Context, categoryID int) (*models.Rubric, error) {
	var rubric models.Rubric
	if err := c.get(ctx, fmt.Sprintf("/categories/%d/rubric", categoryID), nil, &rubric); err != nil {
		return nil, err
	}
	return &rubric, nil
}
