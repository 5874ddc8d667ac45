package github

import (
	"fmt"
	"net/url"
	"strconv"

	"stargazers/pkg/models"
)

// DefaultBaseURL is the public GitHub REST API
const DefaultBaseURL = "https://api.github.com"

// StargazersURL builds the listing URL for one page of a repository's stargazers
func StargazersURL(baseURL string, repo models.RepoID, page, perPage int) string {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))
	return fmt.Sprintf("%s/repos/%s/%s/stargazers?%s",
		baseURL, url.PathEscape(repo.Owner), url.PathEscape(repo.Repo), params.Encode())
}

// UserURL builds the profile URL for a login
func UserURL(baseURL, login string) string {
	return fmt.Sprintf("%s/users/%s", baseURL, url.PathEscape(login))
}
