package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/pluto/internal/client"
	"github.com/desertthunder/pluto/internal/models"
	"github.com/desertthunder/pluto/internal/repositories"
	"github.com/desertthunder/pluto/internal/services"
	"github.com/desertthunder/pluto/internal/shared"
	"github.com/desertthunder/pluto/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	source     services.PlaylistSource
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	db         *shared.DB
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Source     services.PlaylistSource // defaults to the YouTube Data API when youtube.api_key is set
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	DB         *shared.DB // opened from Config on first use when nil
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Source == nil && opts.Config.YouTube.APIKey != "" {
		opts.Source = services.NewYouTubeService(opts.Config.YouTube, opts.HTTPClient)
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		source:     opts.Source,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		db:         opts.DB,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, tokenCommand, courseCommand, dashboardCommand, checkInCommand, viewCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger, e.g. with a file logger while the terminal UI owns the screen.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// Close releases the database connection, if one was opened.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// database opens the configured database and applies pending migrations on first use.
func (r *Runner) database() (*shared.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	r.db = db
	return db, nil
}

// engine builds the course engine over db.
func (r *Runner) engine(db *shared.DB) *tasks.CourseEngine {
	return tasks.NewCourseEngine(
		r.source,
		repositories.NewCourseRepository(db),
		repositories.NewProgressRepository(db),
		r.config.YouTube.VideosPerSection,
	)
}

// userByEmail resolves the owner of host-side commands.
func (r *Runner) userByEmail(ctx context.Context, db *shared.DB, email string) (*models.User, error) {
	if email == "" {
		return nil, fmt.Errorf("%w: --email", shared.ErrMissingArgument)
	}
	user, err := repositories.NewUserRepository(db).GetByEmail(ctx, email)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("%w: no user with email %s (run 'pluto token issue --email %s' first)", shared.ErrInvalidArgument, email, email)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// apiClient builds an API client from the --server and --token flags.
func (r *Runner) apiClient(cmd *cli.Command) (*client.Client, error) {
	token := cmd.String("token")
	if token == "" {
		return nil, fmt.Errorf("%w: --token or PLUTO_TOKEN (see 'pluto token issue')", shared.ErrMissingCredentials)
	}

	server := cmd.String("server")
	if server == "" {
		server = r.config.Server.BaseURL
	}
	return client.New(server, token, r.httpClient), nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
