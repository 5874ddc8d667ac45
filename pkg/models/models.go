package models

import (
	"fmt"
	"time"
)

// RepoID identifies the repository whose stargazers are crawled. Every
// persisted set and checkpoint is keyed by it.
type RepoID struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

// Key returns the owner-repo form used for storage namespaces.
func (r RepoID) Key() string {
	return fmt.Sprintf("%s-%s", r.Owner, r.Repo)
}

func (r RepoID) String() string {
	return fmt.Sprintf("%s/%s", r.Owner, r.Repo)
}

func (r RepoID) IsZero() bool {
	return r.Owner == "" || r.Repo == ""
}

type Stargazer struct {
	Login             string `json:"login"`
	ID                int64  `json:"id"`
	NodeID            string `json:"node_id"`
	AvatarURL         string `json:"avatar_url"`
	GravatarID        string `json:"gravatar_id"`
	URL               string `json:"url"`
	HTMLURL           string `json:"html_url"`
	FollowersURL      string `json:"followers_url"`
	FollowingURL      string `json:"following_url"`
	GistsURL          string `json:"gists_url"`
	StarredURL        string `json:"starred_url"`
	SubscriptionsURL  string `json:"subscriptions_url"`
	OrganizationsURL  string `json:"organizations_url"`
	ReposURL          string `json:"repos_url"`
	EventsURL         string `json:"events_url"`
	ReceivedEventsURL string `json:"received_events_url"`
	Type              string `json:"type"`
	SiteAdmin         bool   `json:"site_admin"`
}

type User struct {
	Stargazer

	Name            *string   `json:"name"`
	Company         *string   `json:"company"`
	Blog            *string   `json:"blog"`
	Location        *string   `json:"location"`
	Email           *string   `json:"email"`
	Hireable        *bool     `json:"hireable"`
	Bio             *string   `json:"bio"`
	TwitterUsername *string   `json:"twitter_username"`
	PublicRepos     int       `json:"public_repos"`
	PublicGists     int       `json:"public_gists"`
	Followers       int       `json:"followers"`
	Following       int       `json:"following"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type RankedEntry struct {
	Rank      int     `json:"rank"`
	Login     string  `json:"login"`
	Followers int     `json:"followers"`
	Company   *string `json:"company"`
	Location  *string `json:"location"`
}
