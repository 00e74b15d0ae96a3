// Package bot wires one batch run together: catalog, abbreviations,
// watermarks and the two poll drivers.
package bot

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"anrbot/internal/catalog"
	"anrbot/internal/errors"
	"anrbot/internal/logger"
	"anrbot/internal/matcher"
	"anrbot/internal/poll"
	"anrbot/internal/render"
	"anrbot/internal/tags"
	"anrbot/internal/usercfg"
	"anrbot/internal/watermark"
)

// CatalogFile is the cached dataset inside the state directory.
const CatalogFile = "cards.json"

// Forum is everything a run needs from the discussion site.
// *reddit.Client implements it.
type Forum interface {
	Me(ctx context.Context) (string, error)
	Submissions(ctx context.Context, subreddit string) poll.Stream
	Comments(ctx context.Context, subreddit string) poll.Stream
	Reply(ctx context.Context, id, text string) error
	ReadWiki(ctx context.Context, subreddit, page string) (string, error)
	WriteWiki(ctx context.Context, subreddit, page, content, reason string) error
}

// Session holds the state of one run. Nothing in here is global.
type Session struct {
	Config  usercfg.Config
	Forum   Forum
	Catalog *catalog.Catalog
	Matcher *matcher.Matcher

	// DryRun renders replies to Out instead of posting them and leaves the
	// watermark files and status page untouched.
	DryRun bool
	Out    io.Writer

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// Report describes a finished run.
type Report struct {
	RunID       string
	BotName     string
	Posts       poll.Summary
	Comments    poll.Summary
	LastPost    float64
	LastComment float64
}

// Open refreshes the cached catalog if it is due and loads it.
func Open(ctx context.Context, cfg usercfg.Config, forum Forum) (*Session, error) {
	cat, err := LoadCatalog(ctx, cfg, true)
	if err != nil {
		return nil, err
	}
	return &Session{Config: cfg, Forum: forum, Catalog: cat, Now: time.Now}, nil
}

// LoadCatalog reads the cached catalog, refreshing it first when refresh is
// set and the copy is stale. A failed refresh falls back to the old copy.
func LoadCatalog(ctx context.Context, cfg usercfg.Config, refresh bool) (*catalog.Catalog, error) {
	store := catalog.NewStore(cfg.StatePath(CatalogFile), cfg.CatalogURL)
	if refresh {
		store.RefreshIfStale(ctx)
	}
	cat, err := store.Load()
	if err != nil {
		return nil, errors.NewCatalogError(store.Path, err)
	}
	logger.Catalog("loaded %d cards from %s", cat.Len(), store.Path)
	return cat, nil
}

// NewMatcher builds a matcher using the suggestion settings from cfg.
func NewMatcher(cfg usercfg.Config, cat *catalog.Catalog, abbr tags.Abbreviations) (*matcher.Matcher, error) {
	algo, err := matcher.ParseAlgorithm(cfg.Suggest.Algorithm)
	if err != nil {
		return nil, errors.NewConfigError("load", fmt.Errorf("suggest.algorithm: %w", err))
	}
	return matcher.New(cat, abbr, matcher.SuggestOptions{
		Limit:         cfg.Suggest.Limit,
		MinSimilarity: float32(cfg.Suggest.MinSimilarity),
		Algorithm:     algo,
	}), nil
}

// CheckWatermarks loads both watermark files without touching the network,
// so a missing or corrupt file stops a run before it logs in.
func CheckWatermarks(cfg usercfg.Config) error {
	for _, name := range []string{watermark.PostsFile, watermark.CommentsFile} {
		if _, err := watermark.Load(cfg.StatePath(name)); err != nil {
			return err
		}
	}
	return nil
}

// Run answers everything posted to subreddit since the last run, then saves
// the watermarks and stamps the status page. Watermarks are read once here
// and written once at the end; a crash in between replays the whole window.
func (s *Session) Run(ctx context.Context, subreddit string) (Report, error) {
	report := Report{RunID: uuid.NewString()}
	logger.SetRunID(report.RunID[:8])
	defer logger.SetRunID("")

	postsPath := s.Config.StatePath(watermark.PostsFile)
	commentsPath := s.Config.StatePath(watermark.CommentsFile)

	lastPost, err := watermark.Load(postsPath)
	if err != nil {
		return report, err
	}
	lastComment, err := watermark.Load(commentsPath)
	if err != nil {
		return report, err
	}

	botName, err := s.botName(ctx)
	if err != nil {
		return report, err
	}
	report.BotName = botName

	backoff, err := s.Config.ReplyBackoff()
	if err != nil {
		return report, errors.NewConfigError("load", err)
	}

	m, err := NewMatcher(s.Config, s.Catalog, s.abbreviations(ctx, subreddit))
	if err != nil {
		return report, err
	}
	s.Matcher = m

	replier := &poll.Replier{
		Poster: s.poster(),
		Policy: poll.RetryPolicy{Backoff: backoff, MaxAttempts: s.Config.Reply.MaxAttempts},
		Sleep:  s.Sleep,
	}
	driver := func(label string) *poll.Driver {
		return &poll.Driver{
			Label:    label,
			BotName:  botName,
			Footer:   s.Config.Footer,
			Renderer: render.Renderer{CardPage: s.Config.CardPageTemplate},
			Resolver: m,
			Sender:   replier,
		}
	}

	logger.Info("Checking /r/%s as %s", subreddit, botName)

	var errs []error
	posts := driver("POSTS")
	report.LastPost, err = posts.ProcessNew(ctx, s.Forum.Submissions(ctx, subreddit), lastPost)
	report.Posts = posts.Summary()
	if err != nil {
		if ctx.Err() != nil {
			return report, err
		}
		errs = append(errs, fmt.Errorf("posts: %w", err))
	}

	comments := driver("COMMENTS")
	report.LastComment, err = comments.ProcessNew(ctx, s.Forum.Comments(ctx, subreddit), lastComment)
	report.Comments = comments.Summary()
	if err != nil {
		if ctx.Err() != nil {
			return report, err
		}
		errs = append(errs, fmt.Errorf("comments: %w", err))
	}

	if s.DryRun {
		logger.Info("Dry run: watermarks and status page left unchanged")
		return report, stderrors.Join(errs...)
	}

	if err := watermark.Save(postsPath, report.LastPost); err != nil {
		return report, fmt.Errorf("save posts watermark: %w", err)
	}
	if err := watermark.Save(commentsPath, report.LastComment); err != nil {
		return report, fmt.Errorf("save comments watermark: %w", err)
	}

	if len(errs) == 0 {
		s.writeStatus(ctx, subreddit)
	}
	return report, stderrors.Join(errs...)
}

func (s *Session) botName(ctx context.Context) (string, error) {
	if s.Config.BotName != "" {
		return s.Config.BotName, nil
	}
	name, err := s.Forum.Me(ctx)
	if err != nil {
		return "", errors.WrapWithContext(err, "forum_connection")
	}
	logger.Forum("authenticated as %s", name)
	return name, nil
}

// abbreviations reads the nickname page. A missing or unreadable page only
// disables nicknames for this run.
func (s *Session) abbreviations(ctx context.Context, subreddit string) tags.Abbreviations {
	page := s.Config.AbbreviationsPage
	if page == "" {
		return nil
	}
	text, err := s.Forum.ReadWiki(ctx, subreddit, page)
	if err != nil {
		logger.Warn("Could not read abbreviations from wiki page %q: %v", page, err)
		return nil
	}
	abbr := tags.ParseAbbreviations(text)
	logger.Debug("Loaded %d abbreviations", len(abbr))
	return abbr
}

func (s *Session) writeStatus(ctx context.Context, subreddit string) {
	page := s.Config.StatusPage
	if page == "" {
		return
	}
	content := StatusLine(s.now())
	if err := s.Forum.WriteWiki(ctx, subreddit, page, content, "anrbot status"); err != nil {
		logger.Warn("Could not update status page %q: %v", page, err)
		return
	}
	logger.Debug("Status page updated: %s", content)
}

// StatusLine is the status page body for a run finishing at t.
func StatusLine(t time.Time) string {
	return "Last run: " + t.UTC().Format(time.RFC1123)
}

func (s *Session) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Session) poster() poll.Poster {
	if s.DryRun {
		out := s.Out
		if out == nil {
			out = io.Discard
		}
		return &printPoster{out: out}
	}
	return s.Forum
}

// printPoster writes replies out instead of posting them.
type printPoster struct {
	out io.Writer
}

func (p *printPoster) Reply(_ context.Context, id, text string) error {
	_, err := fmt.Fprintf(p.out, "--- reply to %s ---\n%s\n\n", id, text)
	return err
}
