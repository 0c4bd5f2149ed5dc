package service

import (
	"fmt"

	"autotask/internal/common/db"
	"autotask/internal/task/catalog"
	"autotask/internal/task/handler"
	"autotask/internal/task/llmclient"
	"autotask/internal/task/sandbox"
	"autotask/internal/task/sandbox/runner"
)

const (
	defaultScriptURL     = "https://raw.githubusercontent.com/sanand0/tools-in-data-science-public/tds-2025-01/project-1/datagen.py"
	defaultFetchURL      = "https://api.example.com/data"
	defaultRepoURL       = "https://github.com/example/repo.git"
	defaultCommitMessage = "Added new content"

	emailPrompt = "Extract the sender's email address from the email message below. " +
		"Reply with the address only.\n\n" + handler.InputPlaceholder
	cardPrompt = "The attached image shows a payment card used as test data. " +
		"Reply with the card number only, digits without spaces or other text."
)

// ToolsConfig holds command prefixes for external programs. Each is split into an argument vector.
type ToolsConfig struct {
	Prettier string `yaml:"prettier"`
	Pandoc   string `yaml:"pandoc"`
	FFmpeg   string `yaml:"ffmpeg"`
	Convert  string `yaml:"convert"`
	Git      string `yaml:"git"`
	UV       string `yaml:"uv"`
}

// DatagenConfig configures the data generator task.
type DatagenConfig struct {
	ScriptURL string `yaml:"scriptURL"`
	Email     string `yaml:"email"`
}

// FetchConfig configures the fetch task.
type FetchConfig struct {
	URL string `yaml:"url"`
}

// GitConfig configures the commit task.
type GitConfig struct {
	RepoURL       string `yaml:"repoURL"`
	AuthorName    string `yaml:"authorName"`
	AuthorEmail   string `yaml:"authorEmail"`
	CommitMessage string `yaml:"commitMessage"`
}

// CatalogConfig is everything the built-in catalog needs besides its collaborators.
type CatalogConfig struct {
	Tools   ToolsConfig   `yaml:"tools"`
	Datagen DatagenConfig `yaml:"datagen"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Git     GitConfig     `yaml:"git"`
}

// ApplyDefaults fills unset fields.
func (c *CatalogConfig) ApplyDefaults() {
	setDefault(&c.Tools.Prettier, "npx -y prettier@3.4.2")
	setDefault(&c.Tools.Pandoc, "pandoc")
	setDefault(&c.Tools.FFmpeg, "ffmpeg")
	setDefault(&c.Tools.Convert, "convert")
	setDefault(&c.Tools.Git, "git")
	setDefault(&c.Tools.UV, "uv")
	setDefault(&c.Datagen.ScriptURL, defaultScriptURL)
	setDefault(&c.Datagen.Email, "user@example.com")
	setDefault(&c.Fetch.URL, defaultFetchURL)
	setDefault(&c.Git.RepoURL, defaultRepoURL)
	setDefault(&c.Git.AuthorName, "autotask")
	setDefault(&c.Git.AuthorEmail, "autotask@localhost")
	setDefault(&c.Git.CommitMessage, defaultCommitMessage)
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

// Deps are the collaborators handlers are built from.
type Deps struct {
	Guard     *sandbox.Guard
	Runner    runner.Runner
	Completer llmclient.Completer
	Embedder  llmclient.Embedder
	OpenDB    db.Opener
	Fetcher   handler.Fetcher
}

func (d Deps) validate() error {
	switch {
	case d.Guard == nil:
		return fmt.Errorf("sandbox guard is required")
	case d.Runner == nil:
		return fmt.Errorf("runner is required")
	case d.Completer == nil:
		return fmt.Errorf("completer is required")
	case d.Embedder == nil:
		return fmt.Errorf("embedder is required")
	case d.OpenDB == nil:
		return fmt.Errorf("database opener is required")
	case d.Fetcher == nil:
		return fmt.Errorf("fetcher is required")
	}
	return nil
}

type toolCommands struct {
	prettier, pandoc, ffmpeg, convert, git, uv []string
}

func parseTools(cfg ToolsConfig) (toolCommands, error) {
	var out toolCommands
	for _, t := range []struct {
		name string
		line string
		dst  *[]string
	}{
		{"prettier", cfg.Prettier, &out.prettier},
		{"pandoc", cfg.Pandoc, &out.pandoc},
		{"ffmpeg", cfg.FFmpeg, &out.ffmpeg},
		{"convert", cfg.Convert, &out.convert},
		{"git", cfg.Git, &out.git},
		{"uv", cfg.UV, &out.uv},
	} {
		argv, err := runner.ParseCommand(t.line)
		if err != nil {
			return out, fmt.Errorf("tools.%s: %w", t.name, err)
		}
		*t.dst = argv
	}
	return out, nil
}

// BuildCatalog assembles the built-in task catalog. Entries are ordered most specific first:
// the broad "format" and "count" matchers come last so they never shadow a longer phrase.
func BuildCatalog(cfg CatalogConfig, deps Deps) (*catalog.Catalog, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	tools, err := parseTools(cfg.Tools)
	if err != nil {
		return nil, err
	}
	g := deps.Guard

	return catalog.New(
		catalog.Entry{
			Name:  "run-datagen",
			Match: catalog.ContainsAll("install uv", "datagen.py"),
			Handler: handler.NewRunDatagen(g, deps.Runner, handler.RunDatagenConfig{
				UV: tools.uv, ScriptURL: cfg.Datagen.ScriptURL, Email: cfg.Datagen.Email,
			}),
		},
		catalog.Entry{
			Name:  "sort-contacts",
			Match: catalog.ContainsAll("sort contacts"),
			Handler: handler.NewSortRecords(g, handler.SortRecordsConfig{
				Input: "contacts.json", Keys: []string{"last_name", "first_name"}, Output: "contacts-sorted.json",
			}),
		},
		catalog.Entry{
			Name:  "recent-logs",
			Match: catalog.ContainsAll("recent logs"),
			Handler: handler.NewRecentFirstLines(g, handler.RecentFirstLinesConfig{
				Dir: "logs", Pattern: "*.log", Limit: 10, Output: "logs-recent.txt",
			}),
		},
		catalog.Entry{
			Name:  "markdown-to-html",
			Match: catalog.ContainsAll("markdown to html"),
			Handler: handler.NewExternalTransform(g, deps.Runner, handler.ExternalTransformConfig{
				Command: tools.pandoc,
				Args:    []handler.Arg{handler.PathArg("doc.md"), handler.Lit("-o"), handler.PathArg("doc.html")},
				Inputs:  []string{"doc.md"},
				Output:  "doc.html",
			}),
		},
		catalog.Entry{
			Name:  "extract-markdown-titles",
			Match: catalog.ContainsAll("extract markdown"),
			Handler: handler.NewMarkdownTitles(g, handler.MarkdownTitlesConfig{
				Dir: "docs", Pattern: "*.md", Prefix: "# ", Output: "docs/index.json",
			}),
		},
		catalog.Entry{
			Name:  "email-sender",
			Match: catalog.ContainsAll("email sender"),
			Handler: handler.NewLLMExtract(g, deps.Completer, handler.LLMExtractConfig{
				Input: "email.txt", Prompt: emailPrompt, Output: "email-sender.txt",
			}),
		},
		catalog.Entry{
			Name:  "credit-card",
			Match: catalog.ContainsAll("credit card"),
			Handler: handler.NewLLMExtract(g, deps.Completer, handler.LLMExtractConfig{
				Input: "credit-card.png", Image: true, Prompt: cardPrompt, StripSpaces: true, Output: "credit-card.txt",
			}),
		},
		catalog.Entry{
			Name:  "similar-comments",
			Match: catalog.ContainsAll("similar comments"),
			Handler: handler.NewNearestPair(g, deps.Embedder, handler.NearestPairConfig{
				Input: "comments.txt", Output: "comments-similar.txt",
			}),
		},
		catalog.Entry{
			Name:  "ticket-sales",
			Match: catalog.ContainsAll("ticket sales"),
			Handler: handler.NewScalarQuery(g, deps.OpenDB, handler.ScalarQueryConfig{
				Database: "ticket-sales.db",
				Query:    "SELECT SUM(price * units) FROM tickets WHERE type = ?",
				Args:     []interface{}{"Gold"},
				Output:   "ticket-sales-gold.txt",
			}),
		},
		catalog.Entry{
			Name:  "fetch-api-data",
			Match: catalog.ContainsAll("fetch api data"),
			Handler: handler.NewFetchJSON(g, deps.Fetcher, handler.FetchJSONConfig{
				URL: cfg.Fetch.URL, Output: "api-data.json",
			}),
		},
		catalog.Entry{
			Name:  "git-commit",
			Match: catalog.ContainsAll("git commit"),
			Handler: handler.NewGitCommit(g, deps.Runner, handler.GitCommitConfig{
				Git:         tools.git,
				RepoURL:     cfg.Git.RepoURL,
				RepoDir:     "repo",
				File:        "file.txt",
				Content:     "New content",
				Message:     cfg.Git.CommitMessage,
				AuthorName:  cfg.Git.AuthorName,
				AuthorEmail: cfg.Git.AuthorEmail,
			}),
		},
		catalog.Entry{
			Name:  "query-database",
			Match: catalog.ContainsAll("query database"),
			Handler: handler.NewRowsQuery(g, deps.OpenDB, handler.RowsQueryConfig{
				Database: "database.db", Query: "SELECT * FROM users", Output: "db-query-results.txt",
			}),
		},
		catalog.Entry{
			Name:  "resize-image",
			Match: catalog.ContainsAll("resize image"),
			Handler: handler.NewExternalTransform(g, deps.Runner, handler.ExternalTransformConfig{
				Command: tools.convert,
				Args:    []handler.Arg{handler.PathArg("image.png"), handler.Lit("-resize"), handler.Lit("50%"), handler.PathArg("image-resized.png")},
				Inputs:  []string{"image.png"},
				Output:  "image-resized.png",
			}),
		},
		catalog.Entry{
			Name:  "transcribe-audio",
			Match: catalog.ContainsAll("transcribe audio"),
			Handler: handler.NewExternalTransform(g, deps.Runner, handler.ExternalTransformConfig{
				Command: tools.ffmpeg,
				Args:    []handler.Arg{handler.Lit("-y"), handler.Lit("-i"), handler.PathArg("audio.mp3"), handler.PathArg("audio.wav")},
				Inputs:  []string{"audio.mp3"},
				Output:  "audio.wav",
			}),
		},
		catalog.Entry{
			Name:  "filter-csv",
			Match: catalog.ContainsAll("filter csv"),
			Handler: handler.NewFilterCSV(g, handler.FilterCSVConfig{
				Input: "data.csv", Column: "status", Value: "active", Output: "filtered.json",
			}),
		},
		catalog.Entry{
			Name:  "format-markdown",
			Match: catalog.ContainsAny("format"),
			Handler: handler.NewExternalTransform(g, deps.Runner, handler.ExternalTransformConfig{
				Command: tools.prettier,
				Args:    []handler.Arg{handler.Lit("--write"), handler.PathArg("format.md")},
				Inputs:  []string{"format.md"},
				Output:  "format.md",
			}),
		},
		catalog.Entry{
			Name:  "count-wednesdays",
			Match: catalog.ContainsAny("count"),
			Handler: handler.NewCountLines(g, handler.CountLinesConfig{
				Input: "dates.txt", Marker: "Wednesday", Output: "dates-wednesdays.txt",
			}),
		},
	)
}
