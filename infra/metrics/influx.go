package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/loanerfleet/loanerfleet/core/metrics"
	"github.com/loanerfleet/loanerfleet/infra/logger"
)

// InfluxSink writes planning events to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.PlanSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordPlan writes the run summary as a line protocol event.
func (s *InfluxSink) RecordPlan(rec coremetrics.PlanRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("plan_run").
		AddTag("run_id", rec.RunID).
		AddTag("office", rec.Office).
		AddTag("optimal", strconv.FormatBool(rec.Optimal)).
		AddTag("degraded", strconv.FormatBool(rec.Degraded)).
		AddTag("component", "planner").
		AddField("week_start", rec.WeekStart.Format("2006-01-02")).
		AddField("candidates", rec.Candidates).
		AddField("assignments", rec.Assignments).
		AddField("net_score", round3(rec.NetScore)).
		AddField("solve_ms", round3(rec.SolveTime.Seconds()*1000)).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordAssignments writes one event per selected assignment.
func (s *InfluxSink) RecordAssignments(recs []coremetrics.AssignmentRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, r := range recs {
		p := write.NewPointWithMeasurement("loan_assignment").
			AddTag("run_id", r.RunID).
			AddTag("vin", r.VIN).
			AddTag("partner_id", r.PartnerID).
			AddTag("make", r.Make).
			AddTag("fleet", r.Fleet).
			AddTag("pinned", strconv.FormatBool(r.Pinned)).
			AddTag("component", "planner").
			AddField("score", round3(r.Score)).
			AddField("estimated_cost", round3(r.EstimatedCost)).
			SetTime(r.Start)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// RecordExclusions writes per-reason exclusion counts.
func (s *InfluxSink) RecordExclusions(recs []coremetrics.ExclusionRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, r := range recs {
		p := write.NewPointWithMeasurement("plan_exclusion").
			AddTag("run_id", r.RunID).
			AddTag("reason", r.Reason).
			AddTag("component", "planner").
			AddField("count", r.Count).
			SetTime(time.Now())
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
