package football

import (
	"context"
	"strconv"
	"strings"
)

// Document types stored in the psl collection.
const (
	TypeStandings = "standings"
	TypePlayer    = "player"
	TypeFixture   = "fixture"
)

type TeamRef struct {
	ID     int    `json:"id" bson:"id"`
	Name   string `json:"name" bson:"name"`
	Logo   string `json:"logo,omitempty" bson:"logo,omitempty"`
	Winner *bool  `json:"winner,omitempty" bson:"winner,omitempty"`
}

type GoalTotals struct {
	For     int `json:"for" bson:"for"`
	Against int `json:"against" bson:"against"`
}

type Record struct {
	Played int        `json:"played" bson:"played"`
	Win    int        `json:"win" bson:"win"`
	Draw   int        `json:"draw" bson:"draw"`
	Lose   int        `json:"lose" bson:"lose"`
	Goals  GoalTotals `json:"goals" bson:"goals"`
}

// Standing is one row of a league table.
type Standing struct {
	Rank        int     `json:"rank" bson:"rank"`
	Team        TeamRef `json:"team" bson:"team"`
	Points      int     `json:"points" bson:"points"`
	GoalsDiff   int     `json:"goalsDiff" bson:"goalsDiff"`
	Group       string  `json:"group,omitempty" bson:"group,omitempty"`
	Form        string  `json:"form,omitempty" bson:"form,omitempty"`
	Description string  `json:"description,omitempty" bson:"description,omitempty"`
	All         Record  `json:"all" bson:"all"`
	Home        Record  `json:"home" bson:"home"`
	Away        Record  `json:"away" bson:"away"`

	Season int    `json:"-" bson:"season"`
	Type   string `json:"-" bson:"type"`
}

type Player struct {
	ID          int    `json:"id" bson:"id"`
	Name        string `json:"name" bson:"name"`
	Firstname   string `json:"firstname,omitempty" bson:"firstname,omitempty"`
	Lastname    string `json:"lastname,omitempty" bson:"lastname,omitempty"`
	Age         int    `json:"age,omitempty" bson:"age,omitempty"`
	Nationality string `json:"nationality,omitempty" bson:"nationality,omitempty"`
	Photo       string `json:"photo,omitempty" bson:"photo,omitempty"`
}

type Games struct {
	Appearences *int    `json:"appearences" bson:"appearences"`
	Minutes     *int    `json:"minutes" bson:"minutes"`
	Position    string  `json:"position,omitempty" bson:"position,omitempty"`
	Rating      *string `json:"rating" bson:"rating"`
}

type Goals struct {
	Total   *int `json:"total" bson:"total"`
	Assists *int `json:"assists" bson:"assists"`
}

type Shots struct {
	Total *int `json:"total" bson:"total"`
	On    *int `json:"on" bson:"on"`
}

type Passes struct {
	Total    *int `json:"total" bson:"total"`
	Key      *int `json:"key" bson:"key"`
	Accuracy *int `json:"accuracy" bson:"accuracy"`
}

type Cards struct {
	Yellow *int `json:"yellow" bson:"yellow"`
	Red    *int `json:"red" bson:"red"`
}

// Statistic is one competition line of a player's season.
type Statistic struct {
	Team   TeamRef `json:"team" bson:"team"`
	Games  Games   `json:"games" bson:"games"`
	Goals  Goals   `json:"goals" bson:"goals"`
	Shots  Shots   `json:"shots" bson:"shots"`
	Passes Passes  `json:"passes" bson:"passes"`
	Cards  Cards   `json:"cards" bson:"cards"`
}

// PlayerRecord is a player's season statistics as stored and served.
type PlayerRecord struct {
	Player     Player      `json:"player" bson:"player"`
	Statistics []Statistic `json:"statistics" bson:"statistics"`
	TeamID     int         `json:"teamId,omitempty" bson:"teamId"`
	TeamName   string      `json:"teamName" bson:"teamName"`
	Season     int         `json:"season" bson:"season"`

	Type string `json:"-" bson:"type"`
}

// GoalsTotal returns the first statistic's goal count, 0 when unknown.
func (p PlayerRecord) GoalsTotal() int {
	if len(p.Statistics) == 0 || p.Statistics[0].Goals.Total == nil {
		return 0
	}
	return *p.Statistics[0].Goals.Total
}

// Rating parses the first statistic's rating. ok is false when it is missing
// or not a number.
func (p PlayerRecord) Rating() (float64, bool) {
	if len(p.Statistics) == 0 || p.Statistics[0].Games.Rating == nil {
		return 0, false
	}
	raw := strings.TrimSpace(*p.Statistics[0].Games.Rating)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

type Venue struct {
	ID   *int   `json:"id" bson:"id"`
	Name string `json:"name,omitempty" bson:"name,omitempty"`
	City string `json:"city,omitempty" bson:"city,omitempty"`
}

type Status struct {
	Long    string `json:"long,omitempty" bson:"long,omitempty"`
	Short   string `json:"short,omitempty" bson:"short,omitempty"`
	Elapsed *int   `json:"elapsed" bson:"elapsed"`
}

type FixtureInfo struct {
	ID        int    `json:"id" bson:"id"`
	Referee   string `json:"referee,omitempty" bson:"referee,omitempty"`
	Date      string `json:"date" bson:"date"`
	Timestamp int64  `json:"timestamp" bson:"timestamp"`
	Venue     Venue  `json:"venue" bson:"venue"`
	Status    Status `json:"status" bson:"status"`
}

type League struct {
	ID     int    `json:"id" bson:"id"`
	Name   string `json:"name" bson:"name"`
	Season int    `json:"season" bson:"season"`
	Round  string `json:"round,omitempty" bson:"round,omitempty"`
	Logo   string `json:"logo,omitempty" bson:"logo,omitempty"`
}

type FixtureTeams struct {
	Home TeamRef `json:"home" bson:"home"`
	Away TeamRef `json:"away" bson:"away"`
}

type Score struct {
	Home *int `json:"home" bson:"home"`
	Away *int `json:"away" bson:"away"`
}

// FixtureRecord is a scheduled or played match.
type FixtureRecord struct {
	Fixture FixtureInfo  `json:"fixture" bson:"fixture"`
	League  League       `json:"league" bson:"league"`
	Teams   FixtureTeams `json:"teams" bson:"teams"`
	Goals   Score        `json:"goals" bson:"goals"`

	Season int    `json:"-" bson:"season"`
	Type   string `json:"-" bson:"type"`
}

// Involves reports whether team played in the fixture.
func (f FixtureRecord) Involves(team string) bool {
	return f.Teams.Home.Name == team || f.Teams.Away.Name == team
}

// TeamInfo is an entry of the upstream teams listing.
type TeamInfo struct {
	Team  TeamRef `json:"team"`
	Venue Venue   `json:"venue"`
}

// Source is the upstream read contract used by seeding.
type Source interface {
	Standings(ctx context.Context, league, season int) ([]Standing, error)
	Teams(ctx context.Context, league, season int) ([]TeamInfo, error)
	Players(ctx context.Context, league, season, teamID int) ([]PlayerRecord, error)
	Fixtures(ctx context.Context, league, season int) ([]FixtureRecord, error)
}
