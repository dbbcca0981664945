package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"github.com/elonfeng/aiscout/internal/config"
	"github.com/elonfeng/aiscout/internal/logging"
	"github.com/elonfeng/aiscout/internal/pipeline"
	"github.com/elonfeng/aiscout/internal/scheduler"
	"github.com/elonfeng/aiscout/internal/store"
	"github.com/elonfeng/aiscout/pkg/alert"
	"github.com/elonfeng/aiscout/pkg/classify"
	"github.com/elonfeng/aiscout/pkg/darkhorse"
	"github.com/elonfeng/aiscout/pkg/dedup"
	"github.com/elonfeng/aiscout/pkg/product"
	"github.com/elonfeng/aiscout/pkg/ranking"
	"github.com/elonfeng/aiscout/pkg/region"
	"github.com/elonfeng/aiscout/pkg/search"
	"github.com/elonfeng/aiscout/pkg/server"
	sig "github.com/elonfeng/aiscout/pkg/signal"
	"github.com/elonfeng/aiscout/pkg/source"
)

// app holds everything wired from one config.
type app struct {
	cfg       *config.Config
	logger    *log.Logger
	store     store.Store
	blocklist *dedup.Blocklist
}

func loadApp() (*app, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	db, err := store.Open(cfg.Storage.Backend, cfg.Storage.DataDir, cfg.Storage.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	return &app{
		cfg:       cfg,
		logger:    logging.New(cfg.Log.Level, os.Stderr),
		store:     db,
		blocklist: dedup.NewBlocklist(cfg.Dedup.BlockedSources, cfg.Dedup.BlockedDomains),
	}, nil
}

func (a *app) Close() error { return a.store.Close() }

func (a *app) weekly() ranking.WeeklyOptions {
	w := a.cfg.Ranking.Weekly
	return ranking.WeeklyOptions{
		MinIndex:   w.MinIndex,
		Limit:      w.Limit,
		FreshDays:  w.FreshDays,
		StickyDays: w.StickyDays,
	}
}

func (a *app) reconciler() *pipeline.Reconciler {
	scorer := darkhorse.NewScorer(
		sig.NewExtractor(a.cfg.Scoring.PremiumSources),
		a.cfg.Scoring.FreshDays,
		a.cfg.Scoring.TreasureThreshold,
	)
	return pipeline.New(a.store, scorer, a.blocklist, a.logger)
}

func (a *app) sources() []source.Source {
	cfg := a.cfg
	filter := source.NewFilter(cfg.Filter.ExtraKeywords, cfg.Filter.ExcludeKeywords)

	var sources []source.Source
	if cfg.Sources.Seeds.Enabled {
		sources = append(sources, source.NewSeeds(cfg.Sources.Seeds.Paths))
	}
	if cfg.Sources.HackerNews.Enabled {
		sources = append(sources, source.NewHackerNews(cfg.Sources.HackerNews.Limit, filter))
	}
	if cfg.Sources.GitHub.Enabled {
		sources = append(sources, source.NewGitHub(cfg.Sources.GitHub.Token, cfg.Sources.GitHub.Limit))
	}
	if cfg.Sources.RSS.Enabled {
		feeds := make([]source.RSSFeed, len(cfg.Sources.RSS.Feeds))
		for i, f := range cfg.Sources.RSS.Feeds {
			feeds[i] = source.RSSFeed{Name: f.Name, URL: f.URL, Market: f.Market, ContentType: f.ContentType}
		}
		sources = append(sources, source.NewRSS(feeds, filter, a.logger))
	}
	return sources
}

func (a *app) classifier() *classify.Classifier {
	c := a.cfg.Classify
	if !c.Enabled || c.APIKey == "" {
		return nil
	}
	a.logger.Info("classifier enabled", "provider", c.Provider, "model", c.Model)
	dir := a.cfg.Storage.DataDir
	return classify.New(c.Provider, c.Model, c.APIKey, c.BaseURL, c.Batch,
		store.NewUsageMetrics(dir), store.NewReviewQueue(dir), a.logger)
}

func (a *app) alerts() *alert.Manager {
	cfg := a.cfg
	var notifiers []alert.Notifier

	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewSlack(cfg.Alerts.Slack.WebhookURL))
	}
	if cfg.Alerts.Discord.Enabled && cfg.Alerts.Discord.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewDiscord(cfg.Alerts.Discord.WebhookURL))
	}
	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alert.NewWebhook(cfg.Alerts.Webhook.URL, cfg.Alerts.Webhook.Secret))
	}

	return alert.NewManager(notifiers)
}

func (a *app) scheduler(sources []source.Source) *scheduler.Scheduler {
	opts := scheduler.Options{
		Store:             a.store,
		Sources:           sources,
		Reconciler:        a.reconciler(),
		Classifier:        a.classifier(),
		Alerts:            a.alerts(),
		Weekly:            a.weekly(),
		CollectInterval:   a.cfg.Schedule.ParseCollectInterval(),
		ReconcileInterval: a.cfg.Schedule.ParseReconcileInterval(),
		Logger:            a.logger,
	}
	if a.cfg.Sources.Websites.Enabled {
		opts.Resolver = source.NewWebsiteResolver(a.blocklist, a.cfg.Sources.Websites.Limit, a.logger)
	}
	return scheduler.New(opts)
}

func (a *app) server(port int) *server.Server {
	if port == 0 {
		port = a.cfg.Server.Port
	}
	rl := a.cfg.Server.RateLimit
	return server.New(server.Options{
		Store:   a.store,
		Ranker:  ranking.NewRanker(a.cfg.Ranking.Composite),
		Weekly:  a.weekly(),
		Limiter: server.NewLimiter(rl.RequestsPerMinute, rl.Burst, nil),
		Port:    port,
		Logger:  a.logger,
	})
}

func runCollect(ctx context.Context, only []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	sources, err := selectSources(a.sources(), only)
	if err != nil {
		return err
	}

	rep, err := a.scheduler(sources).Collect(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "collected %s records, %s new\n", humanize.Comma(int64(rep.Collected)), humanize.Comma(int64(rep.Added)))
	if rep.Resolved+rep.Unresolved > 0 {
		fmt.Fprintf(os.Stderr, "websites: %d resolved, %d unresolved\n", rep.Resolved, rep.Unresolved)
	}
	if rep.Classify.Candidates+rep.Classify.AwaitingReview > 0 {
		fmt.Fprintf(os.Stderr, "classify: %d of %d categorized, %d queued for review, %d awaiting review\n",
			rep.Classify.Classified, rep.Classify.Candidates, rep.Classify.Queued, rep.Classify.AwaitingReview)
	}
	if len(rep.Failed) > 0 {
		fmt.Fprintf(os.Stderr, "failed sources: %s\n", strings.Join(rep.Failed, ", "))
	}
	return nil
}

// selectSources keeps the sources named in only. Empty only keeps all.
func selectSources(all []source.Source, only []string) ([]source.Source, error) {
	if len(only) == 0 {
		return all, nil
	}
	wanted := make(map[string]bool)
	for _, s := range only {
		wanted[strings.ToLower(strings.TrimSpace(s))] = true
	}
	var out []source.Source
	for _, s := range all {
		if wanted[s.Name()] || wanted[shortName(s.Name())] {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no matching sources for: %s", strings.Join(only, ", "))
	}
	return out, nil
}

func shortName(name string) string {
	switch name {
	case "hackernews":
		return "hn"
	case product.SourceCurated:
		return "seeds"
	}
	return name
}

func runReconcile(ctx context.Context, dryRun, jsonOutput bool) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	rep, err := a.reconciler().Run(ctx, pipeline.Options{DryRun: dryRun, Now: time.Now().UTC()})
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(os.Stdout, rep)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "input\t%s\n", humanize.Comma(int64(rep.Input)))
	fmt.Fprintf(w, "blocked\t%d\n", rep.Blocked)
	fmt.Fprintf(w, "backfilled\t%d\n", rep.Backfilled)
	fmt.Fprintf(w, "rescored\t%d\n", rep.Rescored)
	fmt.Fprintf(w, "dropped (no domain / same domain / same name)\t%d / %d / %d\n",
		rep.Dedup.NoDomain, rep.Dedup.SameDomain, rep.Dedup.SameName)
	fmt.Fprintf(w, "regions changed\t%d\n", rep.RegionsChanged)
	fmt.Fprintf(w, "countries changed\t%d\n", rep.CountriesChanged)
	fmt.Fprintf(w, "ids assigned\t%d\n", rep.IDsAssigned)
	fmt.Fprintf(w, "needs verification\t%d\n", rep.NeedsVerification)
	fmt.Fprintf(w, "output\t%s\n", humanize.Comma(int64(rep.Output)))
	fmt.Fprintf(w, "week %s\t%d\n", rep.Week, rep.WeekCount)
	if err := w.Flush(); err != nil {
		return err
	}
	if len(rep.Issues) > 0 {
		fmt.Printf("\n%d region issue(s), run `aiscout validate` for details\n", len(rep.Issues))
	}
	if dryRun {
		fmt.Println("\ndry run: nothing written")
	}
	return nil
}

func runDarkHorses(ctx context.Context, jsonOutput bool, minIndex, limit int) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := a.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load products: %w", err)
	}

	opts := a.weekly()
	if minIndex >= 0 {
		opts.MinIndex = minIndex
	}
	if limit > 0 {
		opts.Limit = limit
	}
	now := time.Now()
	picks := ranking.WeeklyDarkHorses(search.Products(records), opts, now)

	if jsonOutput {
		return writeJSON(os.Stdout, picks)
	}
	if len(picks) == 0 {
		fmt.Println("no dark horses found (try collecting data first: aiscout collect)")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tNAME\tREGION\tFUNDING\tDISCOVERED\tWEBSITE")
	for i := range picks {
		p := &picks[i]
		fmt.Fprintf(w, "%d/5\t%s\t%s\t%s\t%s\t%s\n",
			p.DarkHorseIndex, p.Name, p.Region, p.FundingTotal, discovered(p, now), p.Website)
	}
	return w.Flush()
}

type searchOptions struct {
	keyword    string
	categories string
	typ        string
	sortBy     string
	page       int
	limit      int
	jsonOutput bool
}

func runSearch(ctx context.Context, opts searchOptions) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := a.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load products: %w", err)
	}

	q := search.Query{
		Keyword:    opts.keyword,
		Categories: search.ParseCategories(opts.categories),
		Type:       opts.typ,
		SortBy:     opts.sortBy,
		Page:       opts.page,
		Limit:      opts.limit,
	}.Normalize()
	now := time.Now()
	res := search.New(ranking.NewRanker(a.cfg.Ranking.Composite)).Search(search.Products(records), q, now)

	if opts.jsonOutput {
		return writeJSON(os.Stdout, res)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tNAME\tCATEGORIES\tHOT\tDISCOVERED")
	for i := range res.Products {
		p := &res.Products[i]
		cats := make([]string, len(p.Categories))
		for j, c := range p.Categories {
			cats[j] = string(c)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%.1f\t%s\n",
			p.DarkHorseIndex, p.Name, strings.Join(cats, ","), p.HotnessScore(), discovered(p, now))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\npage %d of %d (%s matches)\n", q.Page, search.Pages(res.Total, q.Limit), humanize.Comma(int64(res.Total)))
	return nil
}

func runValidate(ctx context.Context) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := a.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load products: %w", err)
	}

	issues := region.Validate(records)
	for _, issue := range issues {
		fmt.Println(issue.String())
	}
	fmt.Printf("%d issue(s) across %s products\n", len(issues), humanize.Comma(int64(len(records))))
	return nil
}

func runReview() error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	pending, err := store.NewReviewQueue(a.cfg.Storage.DataDir).List()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Println("nothing waiting for review")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tREASON\tSUGGESTED\tQUEUED")
	for _, p := range pending {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Name, p.Reason, strings.Join(p.Suggested, ","), p.QueuedAt)
	}
	return w.Flush()
}

func runUsage() error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := store.NewUsageMetrics(a.cfg.Storage.DataDir).Report()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DAY\tPROVIDER\tSCRIPT\tCHAT\tSEARCH\tINPUT TOKENS\tOUTPUT TOKENS")
	for _, day := range sortedKeys(report) {
		for _, provider := range sortedKeys(report[day]) {
			for _, script := range sortedKeys(report[day][provider]) {
				c := report[day][provider][script]
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", day, provider, script,
					humanize.Comma(c[store.CounterChatRequests]),
					humanize.Comma(c[store.CounterSearchRequests]),
					humanize.Comma(c[store.CounterInputTokens]),
					humanize.Comma(c[store.CounterOutputTokens]))
			}
		}
	}
	return w.Flush()
}

func runServe(port int) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return a.server(port).ListenAndServe(ctx)
}

func runDaemon(port int) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched := a.scheduler(a.sources())
	go func() {
		if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
			a.logger.Error("scheduler stopped", "err", err)
		}
	}()

	err = a.server(port).ListenAndServe(ctx)
	a.logger.Info("shutting down")
	return err
}

func discovered(p *product.Product, now time.Time) string {
	t, ok := sig.DiscoveryDate(p)
	if !ok {
		return "-"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
