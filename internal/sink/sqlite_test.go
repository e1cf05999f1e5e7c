package sink

import (
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/user/fleetprobe/internal/model"
)

func sampleReport() *model.Report {
	return &model.Report{
		Meta: model.RunMeta{
			RunID:     "20240301_120000",
			StartedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
			Host:      "host1",
		},
		Targets: []model.TargetReport{
			{
				Target: model.Target{ID: "10.0.0.1"},
				Outcomes: []model.Outcome{
					{
						Kind:   model.KindICMP,
						Target: "10.0.0.1",
						Status: model.StatusSuccess,
						ICMP:   &model.ICMPMetrics{Sent: 5, Received: 5, HasRTT: true, AvgMs: 1.2},
					},
					{
						Kind:   model.KindTCP,
						Target: "10.0.0.1",
						Status: model.StatusFailure,
						TCP:    &model.TCPMetrics{Ports: map[int]model.PortState{443: model.PortFiltered}},
					},
				},
			},
		},
		Summary: model.Summary{Total: 2, Succeeded: 1, Failed: 1},
	}
}

func TestSQLiteSink_WriteInsertsRunAndOutcomes(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO runs").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO outcomes").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO outcomes").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	s := NewSQLiteSink(db)
	if err := s.Write(sampleReport()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSQLiteSink_RollsBackOnInsertError(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO runs").
		WillReturnError(errDisk)
	mock.ExpectRollback()

	s := NewSQLiteSink(db)
	if err := s.Write(sampleReport()); err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

var errDisk = &diskErr{}

type diskErr struct{}

func (*diskErr) Error() string { return "disk I/O error" }
