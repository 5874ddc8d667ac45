package auth

// TokenInstructions explains how to create a token for the CLI
const TokenInstructions = `Unauthenticated requests are limited to 60 per hour.
A personal access token raises the limit to 5,000 per hour.

  1. Open https://github.com/settings/tokens
  2. Choose "Generate new token (classic)"
  3. No permission scopes are needed for public repositories
  4. Copy the token and paste it below, or export GITHUB_PERSONAL_ACCESS_TOKEN`
