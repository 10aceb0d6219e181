package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// TrackOption configures a TrackReader
type TrackOption func(*TrackReader)

// WithStartTime excludes positions received before t
func WithStartTime(t time.Time) TrackOption {
	return func(r *TrackReader) {
		t = t.UTC()
		r.startTime = &t
	}
}

// WithEndTime excludes positions received after t
func WithEndTime(t time.Time) TrackOption {
	return func(r *TrackReader) {
		t = t.UTC()
		r.endTime = &t
	}
}

// WithTimeRange sets both start and end time filters
func WithTimeRange(startTime, endTime time.Time) TrackOption {
	return func(r *TrackReader) {
		WithStartTime(startTime)(r)
		WithEndTime(endTime)(r)
	}
}

// WithMinSatellites drops positions from fixes with fewer satellites
func WithMinSatellites(n uint8) TrackOption {
	return func(r *TrackReader) {
		r.minSatellites = n
	}
}

// TrackReader iterates over the positions of a session
type TrackReader struct {
	db        *sql.DB
	sessionID int64

	startTime     *time.Time // Optional start of time range filter
	endTime       *time.Time // Optional end of time range filter
	minSatellites uint8

	current *TrackPoint
	rows    *sql.Rows
	err     error
}

func newTrackReader(ctx context.Context, db *sql.DB, sessionID int64, opts ...TrackOption) (*TrackReader, error) {
	r := &TrackReader{
		db:        db,
		sessionID: sessionID,
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.init(ctx); err != nil {
		return nil, fmt.Errorf("initializing reader: %w", err)
	}
	return r, nil
}

func (r *TrackReader) init(ctx context.Context) (err error) {
	if r.db == nil {
		return errors.New("database connection required")
	}
	if r.sessionID <= 0 {
		return errors.New("session ID required")
	}
	if r.startTime != nil && r.endTime != nil && r.startTime.After(*r.endTime) {
		return fmt.Errorf("start time %s is after end time %s", r.startTime, r.endTime)
	}

	stmt, err := r.db.PrepareContext(ctx, selectTrackSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	start, end := nullableTime(r.startTime), nullableTime(r.endTime)
	r.rows, err = stmt.QueryContext(ctx, r.sessionID, start, start, end, end, int64(r.minSatellites))
	return err
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

// Next advances to the next position. It returns false at the end of the
// track or on error; check Error to tell them apart.
func (r *TrackReader) Next(ctx context.Context) bool {
	if r.err != nil || r.rows == nil {
		return false
	}

	if err := ctx.Err(); err != nil {
		r.err = err
		return false
	}

	if !r.rows.Next() {
		return false
	}

	var data trackPointData
	if r.err = r.rows.Scan(
		&data.ReceivedAt,
		&data.Sequence,
		&data.Latitude,
		&data.Longitude,
		&data.Altitude,
		&data.Satellites,
	); r.err != nil {
		r.err = fmt.Errorf("scanning track point: %w", r.err)
		return false
	}

	r.current = &TrackPoint{
		ReceivedAt: data.ReceivedAt.Datetime,
		Sequence:   uint8(data.Sequence),
		Latitude:   data.Latitude,
		Longitude:  data.Longitude,
		Altitude:   fromNullFloat64(data.Altitude),
		Satellites: uint8(data.Satellites.Int64),
	}
	return true
}

// Current returns the position Next moved to
func (r *TrackReader) Current() *TrackPoint {
	return r.current
}

func (r *TrackReader) Error() error {
	if r.err != nil {
		return r.err
	}
	if r.rows != nil {
		return r.rows.Err()
	}
	return nil
}

func (r *TrackReader) Close() error {
	if r.rows != nil {
		err := r.rows.Close()
		r.rows = nil
		r.current = nil
		return err
	}
	return nil
}

// ReadAll drains the reader into a slice
func (r *TrackReader) ReadAll(ctx context.Context) ([]TrackPoint, error) {
	var points []TrackPoint
	for r.Next(ctx) {
		points = append(points, *r.Current())
	}
	return points, r.Error()
}
