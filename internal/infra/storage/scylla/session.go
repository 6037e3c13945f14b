package scylla

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/gocql/gocql"
)

var keyspacePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

type SessionConfig struct {
	Hosts       []string
	Keyspace    string
	Consistency string
	Timeout     time.Duration
}

// NewSession ensures the keyspace and reservations table exist and returns a
// session bound to the keyspace.
func NewSession(ctx context.Context, cfg SessionConfig, logger *slog.Logger) (*gocql.Session, error) {
	if len(cfg.Hosts) == 0 {
		return nil, fmt.Errorf("scylla: at least one host is required")
	}
	if !keyspacePattern.MatchString(cfg.Keyspace) {
		return nil, fmt.Errorf("scylla: invalid keyspace name: %s", cfg.Keyspace)
	}
	consistency, err := parseConsistency(cfg.Consistency)
	if err != nil {
		return nil, err
	}

	baseCluster := newCluster(cfg, consistency)
	baseSession, err := baseCluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("connect to scylla: %w", err)
	}
	defer baseSession.Close()
	if err := ensureKeyspace(ctx, baseSession, cfg.Keyspace); err != nil {
		return nil, err
	}

	cluster := newCluster(cfg, consistency)
	cluster.Keyspace = cfg.Keyspace
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("connect to keyspace %s: %w", cfg.Keyspace, err)
	}
	if err := ensureTables(ctx, session, cfg.Keyspace); err != nil {
		session.Close()
		return nil, err
	}
	if logger != nil {
		logger.Info("scylla connected", "hosts", cfg.Hosts, "keyspace", cfg.Keyspace, "consistency", consistency.String())
	}
	return session, nil
}

func newCluster(cfg SessionConfig, consistency gocql.Consistency) *gocql.ClusterConfig {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Consistency = consistency
	if cfg.Timeout > 0 {
		cluster.Timeout = cfg.Timeout
		cluster.ConnectTimeout = cfg.Timeout
	}
	return cluster
}

func ensureKeyspace(ctx context.Context, session *gocql.Session, keyspace string) error {
	cql := fmt.Sprintf(
		"CREATE KEYSPACE IF NOT EXISTS %s WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1}",
		keyspace,
	)
	if err := session.Query(cql).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("create keyspace: %w", err)
	}
	return nil
}

func ensureTables(ctx context.Context, session *gocql.Session, keyspace string) error {
	reservations := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s.reservations_by_property (
	property_id text,
	reservation_id text,
	check_in timestamp,
	check_out timestamp,
	required_units int,
	status text,
	created_at timestamp,
	PRIMARY KEY (property_id, reservation_id)
);`, keyspace)
	if err := session.Query(reservations).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("create reservations table: %w", err)
	}
	return nil
}

func parseConsistency(raw string) (gocql.Consistency, error) {
	if strings.TrimSpace(raw) == "" {
		return gocql.LocalQuorum, nil
	}
	c, err := gocql.ParseConsistencyWrapper(strings.ToUpper(strings.TrimSpace(raw)))
	if err != nil {
		return 0, fmt.Errorf("scylla: %w", err)
	}
	return c, nil
}
