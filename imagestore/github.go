package imagestore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/go-github/v48/github"
	"golang.org/x/oauth2"
)

// GitHubSource resolves an image by downloading a named release asset from
// a GitHub repository. Repo is "$OWNER/$NAME" (e.g. "winix-os/images");
// the name passed to [GitHubSource.Load] is "$TAG:$ASSET", selecting the
// release by its tag and the asset by its file name within that release.
type GitHubSource struct {
	Repo  string
	Token string

	client *github.Client
}

// withClient returns g with its client initialized, constructing an OAuth2
// client only when a token is present.
func (g GitHubSource) withClient() GitHubSource {
	var httpClient *http.Client
	if g.Token != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: g.Token})
		httpClient = oauth2.NewClient(context.Background(), src)
	}
	g.client = github.NewClient(httpClient)
	return g
}

// Load downloads the release asset named assetName from the release tagged
// releaseTag, where "releaseTag:assetName" is the name argument.
func (g GitHubSource) Load(name string) ([]byte, error) {
	g = g.withClient()

	owner, repo, err := splitRepo(g.Repo)
	if err != nil {
		return nil, err
	}
	releaseTag, assetName, err := splitImageName(name)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	release, _, err := g.client.Repositories.GetReleaseByTag(ctx, owner, repo, releaseTag)
	if err != nil {
		return nil, fmt.Errorf("failed finding release %q in %s: %w", releaseTag, g.Repo, err)
	}

	for _, asset := range release.Assets {
		if asset.GetName() != assetName {
			continue
		}
		rc, _, err := g.client.Repositories.DownloadReleaseAsset(ctx, owner, repo, asset.GetID(), http.DefaultClient)
		if err != nil {
			return nil, fmt.Errorf("failed downloading asset %q: %w", assetName, err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("asset %q not found in release %q of %s", assetName, releaseTag, g.Repo)
}

func splitRepo(repoURL string) (owner, name string, err error) {
	parts := strings.Split(repoURL, "/")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("repo (%s) must be of the form $OWNER/$REPO", repoURL)
	}
	return parts[0], parts[1], nil
}

func splitImageName(name string) (tag, asset string, err error) {
	parts := strings.SplitN(name, ":", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("image name (%s) must be of the form $TAG:$ASSET", name)
	}
	return parts[0], parts[1], nil
}
