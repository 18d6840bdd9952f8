package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "valid", cfg: Config{MaxOpenConns: 10, MaxIdleConns: 5}, wantErr: false},
		{name: "idle exceeds open", cfg: Config{MaxOpenConns: 5, MaxIdleConns: 10}, wantErr: true},
		{name: "zero open conns", cfg: Config{MaxOpenConns: 0, MaxIdleConns: 0}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("SOCRATES_DB_HOST", "")
	t.Setenv("SOCRATES_DB_PORT", "")
	t.Setenv("SOCRATES_DB_USER", "")
	t.Setenv("SOCRATES_DB_NAME", "")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 5432, cfg.Port)
	assert.Equal(t, "socrates", cfg.User)
	assert.Equal(t, "socrates", cfg.Database)
	assert.Equal(t, "disable", cfg.SSLMode)
}

func TestLoadConfigFromEnvOverrides(t *testing.T) {
	t.Setenv("SOCRATES_DB_HOST", "db.internal")
	t.Setenv("SOCRATES_DB_PORT", "5433")
	t.Setenv("SOCRATES_DB_USER", "svc_socrates")
	t.Setenv("SOCRATES_DB_NAME", "socrates_audit")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, 5433, cfg.Port)
	assert.Equal(t, "svc_socrates", cfg.User)
	assert.Equal(t, "socrates_audit", cfg.Database)
}

func TestRecordVerdictInsertsRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	client := &Client{db: db}

	mock.ExpectExec("INSERT INTO verdicts").
		WithArgs("sess-1", "1.2.3.4|5.6.7.8|tcp|port_scan", "HIGH", 72.5, "MALICIOUS", 0.9,
			"module3:output", "suspicious repeated scan", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = client.RecordVerdict(context.Background(), VerdictRecord{
		SessionID:   "sess-1",
		BucketKey:   "1.2.3.4|5.6.7.8|tcp|port_scan",
		Severity:    "HIGH",
		RiskScore:   72.5,
		Verdict:     "MALICIOUS",
		Confidence:  0.9,
		RoutedQueue: "module3:output",
		Summary:     "suspicious repeated scan",
		RawVerdict:  map[string]any{"verdict": "MALICIOUS"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordVerdictPropagatesDatabaseError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	client := &Client{db: db}

	mock.ExpectExec("INSERT INTO verdicts").WillReturnError(errors.New("connection reset"))

	err = client.RecordVerdict(context.Background(), VerdictRecord{BucketKey: "k", RawVerdict: nil})
	assert.Error(t, err)
}

func TestRecentVerdictsScansRowsNewestFirst(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	client := &Client{db: db}

	rows := sqlmock.NewRows([]string{
		"session_id", "bucket_key", "severity", "risk_score", "verdict", "confidence", "routed_queue", "summary",
	}).
		AddRow("sess-2", "9.9.9.9|1.1.1.1|tcp|scan", "LOW", 10.0, "BENIGN", 0.99, "module3:output", "").
		AddRow("sess-1", "1.2.3.4|5.6.7.8|tcp|port_scan", "HIGH", 72.5, "MALICIOUS", 0.9, "module3:output", "suspicious repeated scan")

	mock.ExpectQuery("SELECT session_id, bucket_key").WithArgs(10).WillReturnRows(rows)

	got, err := client.RecentVerdicts(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "sess-2", got[0].SessionID)
	assert.Equal(t, "BENIGN", got[0].Verdict)
	assert.Equal(t, "sess-1", got[1].SessionID)
	assert.Equal(t, "suspicious repeated scan", got[1].Summary)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentVerdictsPropagatesQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	client := &Client{db: db}

	mock.ExpectQuery("SELECT session_id, bucket_key").WillReturnError(errors.New("connection reset"))

	_, err = client.RecentVerdicts(context.Background(), 10)
	assert.Error(t, err)
}
