package dataset

import (
	"context"
	"fmt"

	"github.com/oarkflow/squealx"
	"github.com/oarkflow/squealx/connection"

	"github.com/oarkflow/courselookup"
)

// DefaultSQLQuery selects the dataset columns from a "courses" table.
const DefaultSQLQuery = `SELECT _id, subject, title, catalog, instructors FROM courses ORDER BY _id`

// SQLConfig describes the database holding the course table.
type SQLConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	Query    string `mapstructure:"query"`
}

// SQLSource selects course rows from a database. The instructors column
// may hold a JSON array or a comma separated list of names.
type SQLSource struct {
	cfg    SQLConfig
	logger *courselookup.Logger
}

// NewSQLSource returns a source reading through cfg.
func NewSQLSource(cfg SQLConfig, logger *courselookup.Logger) *SQLSource {
	if cfg.Query == "" {
		cfg.Query = DefaultSQLQuery
	}
	if logger == nil {
		logger = courselookup.NoopLogger()
	}
	return &SQLSource{cfg: cfg, logger: logger}
}

// Load implements courselookup.Loader.
func (s *SQLSource) Load(ctx context.Context) ([]courselookup.CourseRecord, error) {
	db, _, err := connection.FromConfig(squealx.Config{
		Host:     s.cfg.Host,
		Port:     s.cfg.Port,
		Driver:   s.cfg.Driver,
		Username: s.cfg.Username,
		Password: s.cfg.Password,
		Database: s.cfg.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("dataset: failed to connect to database: %w", err)
	}
	defer db.Close()

	rows := newRowCollector(ctx, s.logger)
	if err := squealx.SelectEach(db, rows.add, s.cfg.Query); err != nil {
		return nil, fmt.Errorf("dataset: selecting courses: %w", err)
	}
	return rows.courses, nil
}

// rowCollector turns selected rows into records, skipping rows that have
// no identity.
type rowCollector struct {
	ctx     context.Context
	logger  *courselookup.Logger
	n       int
	courses []courselookup.CourseRecord
}

func newRowCollector(ctx context.Context, logger *courselookup.Logger) *rowCollector {
	return &rowCollector{ctx: ctx, logger: logger}
}

func (c *rowCollector) add(row map[string]any) error {
	defer func() { c.n++ }()
	if err := c.ctx.Err(); err != nil {
		return err
	}
	course, err := courselookup.RecordFromMap(row)
	if err != nil {
		c.logger.WarnContext(c.ctx, "skipping dataset record", "source", "sql", "index", c.n, "error", err)
		return nil
	}
	c.courses = append(c.courses, course)
	return nil
}
