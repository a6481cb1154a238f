// Package cli консольные команды обслуживания портала: миграции,
// разовый импорт календарей, объявления в Telegram, управление
// участниками и рендеринг афиши недели в файл.
package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/atlasov/club_portal/internal/app"
	"github.com/atlasov/club_portal/internal/clock"
	"github.com/atlasov/club_portal/internal/config"
	"github.com/atlasov/club_portal/internal/icsync"
	"github.com/atlasov/club_portal/internal/model"
	"github.com/atlasov/club_portal/internal/notifier"
	"github.com/atlasov/club_portal/internal/poster"
	"github.com/atlasov/club_portal/internal/repository"
	"github.com/atlasov/club_portal/internal/repository/base"
	"github.com/atlasov/club_portal/internal/service"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const commandTimeout = 5 * time.Minute

var (
	flagIncludeInactive bool
	flagRole            string
	flagDate            string
	flagOut             string
)

// NewRootCmd создаёт корневую команду
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "portalctl",
		Short: "Club portal maintenance commands",
		Long: `Maintenance commands for the club portal.
Configuration is read from the environment, same as the portal server.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(
		newMigrateCmd(),
		newImportCmd(),
		newAnnounceCmd(),
		newMembersCmd(),
		newPosterCmd(),
	)

	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE:  runMigrate,
	}
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Synchronize external calendar feeds once",
		RunE:  runImport,
	}
}

func newAnnounceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "announce <message>",
		Short: "Send an announcement to the club Telegram channel",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnnounce,
	}
}

func newMembersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "members",
		Short: "Inspect and manage club members",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List club members",
		RunE:  runMembersList,
	}
	list.Flags().BoolVar(&flagIncludeInactive, "include-inactive", false, "Include deactivated members")

	setRole := &cobra.Command{
		Use:   "set-role <member-id>",
		Short: "Change a member role",
		Args:  cobra.ExactArgs(1),
		RunE:  runMembersSetRole,
	}
	setRole.Flags().StringVar(&flagRole, "role", "", "New role: admin, staff or member (required)")
	setRole.MarkFlagRequired("role")

	cmd.AddCommand(list, setRole)
	return cmd
}

func newPosterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "poster",
		Short: "Render the week poster to a PNG file",
		RunE:  runPoster,
	}
	cmd.Flags().StringVar(&flagDate, "date", "", "Any date inside the target week, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&flagOut, "out", "week.png", "Output file")
	return cmd
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	pool, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	migrator, err := app.NewMigrator(pool, cfg.MigrationsPath, logger)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer migrator.Close()

	if err := migrator.Run(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	version, err := migrator.Version(ctx)
	if err != nil {
		return fmt.Errorf("reading migration version: %w", err)
	}

	fmt.Printf("✅ Migrations applied, current version %d\n", version)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.FeedsPath == "" {
		return fmt.Errorf("FEEDS_PATH is not configured")
	}
	feeds, err := config.LoadFeeds(cfg.FeedsPath)
	if err != nil {
		return fmt.Errorf("loading feeds config: %w", err)
	}

	zone, err := time.LoadLocation(cfg.ClubZone)
	if err != nil {
		return fmt.Errorf("loading club timezone: %w", err)
	}

	pool, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	events := repository.NewEventRepository(base.NewRepository(pool), logger)
	importer := service.NewImportService(events, icsync.NewClient(zone, logger), feeds, clock.NewSystem(), logger)

	if err := importer.SyncAll(ctx); err != nil {
		return fmt.Errorf("importing feeds: %w", err)
	}

	fmt.Printf("✅ Imported %d feed(s)\n", len(feeds.Sources))
	return nil
}

func runAnnounce(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if !cfg.TelegramEnabled() {
		return fmt.Errorf("TELEGRAM_TOKEN and TELEGRAM_CHAT_ID must be set")
	}

	zone, err := time.LoadLocation(cfg.ClubZone)
	if err != nil {
		return fmt.Errorf("loading club timezone: %w", err)
	}

	tg, err := notifier.New(cfg.TelegramToken, cfg.TelegramChatID, zone, logger)
	if err != nil {
		return fmt.Errorf("creating telegram notifier: %w", err)
	}

	if err := tg.Announce(ctx, args[0]); err != nil {
		return fmt.Errorf("sending announcement: %w", err)
	}

	fmt.Println("✅ Announcement sent")
	return nil
}

func runMembersList(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	pool, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	members, err := repository.NewMemberRepository(base.NewRepository(pool), logger).List(ctx, flagIncludeInactive)
	if err != nil {
		return fmt.Errorf("listing members: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tROLE\tACTIVE\tEMAIL")
	for _, m := range members {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", m.ID, m.DisplayName(), m.Role, m.IsActive, m.Email)
	}
	return w.Flush()
}

func runMembersSetRole(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid member id: %w", err)
	}

	role := model.MemberRole(flagRole)
	switch role {
	case model.RoleAdmin, model.RoleStaff, model.RoleMember:
	default:
		return fmt.Errorf("unknown member role: %q", flagRole)
	}

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	pool, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	members := repository.NewMemberRepository(base.NewRepository(pool), logger)
	member, err := members.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("getting member: %w", err)
	}
	if member == nil {
		return fmt.Errorf("member not found")
	}

	if err := members.SetRole(ctx, id, role); err != nil {
		return fmt.Errorf("setting member role: %w", err)
	}

	fmt.Printf("✅ %s is now %s\n", member.DisplayName(), role)
	return nil
}

func runPoster(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	zone, err := time.LoadLocation(cfg.ClubZone)
	if err != nil {
		return fmt.Errorf("loading club timezone: %w", err)
	}

	clk := clock.NewSystem()
	anchor := clk.Now().In(zone)
	if flagDate != "" {
		anchor, err = time.ParseInLocation("2006-01-02", flagDate, zone)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
	}

	pool, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	b := base.NewRepository(pool)
	calendar := service.NewCalendarService(repository.NewEventRepository(b, logger), clk, zone, logger)

	occurrences, err := calendar.Week(ctx, anchor, nil)
	if err != nil {
		return fmt.Errorf("loading week occurrences: %w", err)
	}
	teams, err := repository.NewTeamRepository(b, logger).List(ctx, false)
	if err != nil {
		return fmt.Errorf("listing teams: %w", err)
	}

	png, err := poster.NewGenerator(cfg.PosterFont, zone, clk, logger).WeekPoster(anchor, occurrences, teams)
	if err != nil {
		return fmt.Errorf("rendering poster: %w", err)
	}

	if err := os.WriteFile(flagOut, png, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", flagOut, err)
	}

	fmt.Printf("✅ Poster saved to %s (%d events)\n", flagOut, len(occurrences))
	return nil
}

// setup загружает конфигурацию и создаёт логгер
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, app.NewLogger(cfg.Environment), nil
}

// connect открывает пул соединений с базой
func connect(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

// Execute запускает CLI
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
