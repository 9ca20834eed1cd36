// Package bano ingests BANO/OpenAddresses-style CSV address files, one
// Addr per row, synthesizing a Street from the row's (street name, city)
// pair and resolving admin attachment via the Geofinder (spec §4.F). A
// Postgres-backed source (grounded on the teacher's postgresosm package)
// is also supported for deployments that load BANO into a staging table
// instead of shipping the CSV directly.
package bano

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/mimirsbrunn/internal/geofinder"
	"github.com/mimirsbrunn/internal/model"
)

// columns is the BANO CSV header this adapter understands:
// id,house_number,street,city,postcode,lat,lon
var columns = map[string]int{
	"id":           0,
	"house_number": 1,
	"street":       2,
	"city":         3,
	"postcode":     4,
	"lat":          5,
	"lon":          6,
}

// streetKey groups rows into synthesized Street documents so addresses on
// the same named street don't each mint their own Street record.
type streetKey struct {
	name, city string
}

// IngestCSV reads BANO-formatted rows from r and emits one Addr (and, the
// first time a street name is seen, its synthesized Street) per row.
func IngestCSV(ctx context.Context, r io.Reader, admins *geofinder.Finder, out chan<- model.Document) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("bano: read header: %w", err)
	}
	colIndex := indexHeader(header)

	streets := make(map[streetKey]model.Street)

	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("bano: read row: %w", err)
		}

		row := newRow(record, colIndex)
		lat, err1 := strconv.ParseFloat(row.lat, 64)
		lon, err2 := strconv.ParseFloat(row.lon, 64)
		if err1 != nil || err2 != nil {
			continue // a source row with unparseable coordinates is skipped, not fatal
		}
		coord, err := model.NewCoord(lat, lon)
		if err != nil {
			continue
		}

		var refs []model.AdminRef
		if admins != nil {
			refs = admins.Attach(coord)
		}

		key := streetKey{name: row.street, city: row.city}
		street, seen := streets[key]
		if !seen {
			street, err = model.NewStreet(fmt.Sprintf("street:bano:%s:%s", row.street, row.city), row.street, coord, refs, 1.0)
			if err != nil {
				continue
			}
			streets[key] = street
			select {
			case out <- street:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		var zipCodes []string
		if row.postcode != "" {
			zipCodes = []string{row.postcode}
		}
		addr, err := model.NewAddr(
			fmt.Sprintf("addr:bano:%s", row.id),
			row.houseNumber, street, coord, zipCodes, 1.0,
		)
		if err != nil {
			continue
		}

		select {
		case out <- addr:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// pgRow mirrors one staging-table row when BANO has been loaded into
// Postgres ahead of time, matching the teacher's sqlx-scanned-struct
// convention in postgresosm.
type pgRow struct {
	ID          string  `db:"id"`
	HouseNumber string  `db:"house_number"`
	Street      string  `db:"street"`
	City        string  `db:"city"`
	Postcode    string  `db:"postcode"`
	Lat         float64 `db:"lat"`
	Lon         float64 `db:"lon"`
}

// IngestPostgres streams BANO rows from a staging table reachable at dsn.
// The import CLI does not call it; it reads BANO from CSV files only.
func IngestPostgres(ctx context.Context, dsn, table string, admins *geofinder.Finder, out chan<- model.Document) error {
	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return fmt.Errorf("bano: connect: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryxContext(ctx, fmt.Sprintf("SELECT id, house_number, street, city, postcode, lat, lon FROM %s", table))
	if err != nil {
		return fmt.Errorf("bano: query %s: %w", table, err)
	}
	defer rows.Close()

	streets := make(map[streetKey]model.Street)

	for rows.Next() {
		var r pgRow
		if err := rows.StructScan(&r); err != nil {
			return fmt.Errorf("bano: scan row: %w", err)
		}

		coord, err := model.NewCoord(r.Lat, r.Lon)
		if err != nil {
			continue
		}
		var refs []model.AdminRef
		if admins != nil {
			refs = admins.Attach(coord)
		}

		key := streetKey{name: r.Street, city: r.City}
		street, seen := streets[key]
		if !seen {
			street, err = model.NewStreet(fmt.Sprintf("street:bano:%s:%s", r.Street, r.City), r.Street, coord, refs, 1.0)
			if err != nil {
				continue
			}
			streets[key] = street
			select {
			case out <- street:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		var zipCodes []string
		if r.Postcode != "" {
			zipCodes = []string{r.Postcode}
		}
		addr, err := model.NewAddr(fmt.Sprintf("addr:bano:%s", r.ID), r.HouseNumber, street, coord, zipCodes, 1.0)
		if err != nil {
			continue
		}
		select {
		case out <- addr:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return rows.Err()
}

type row struct {
	id, houseNumber, street, city, postcode, lat, lon string
}

func newRow(record []string, colIndex map[string]int) row {
	get := func(name string) string {
		if i, ok := colIndex[name]; ok && i < len(record) {
			return record[i]
		}
		return ""
	}
	return row{
		id:          get("id"),
		houseNumber: get("house_number"),
		street:      get("street"),
		city:        get("city"),
		postcode:    get("postcode"),
		lat:         get("lat"),
		lon:         get("lon"),
	}
}

func indexHeader(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[h] = i
	}
	if len(idx) == 0 {
		return columns
	}
	return idx
}
