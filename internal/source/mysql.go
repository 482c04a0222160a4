package source

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/partnerpulse/engine/internal/dataset"
)

// MySQL loads the five collections from the reporting database.
type MySQL struct {
	db *sql.DB
}

// OpenMySQL opens a MySQL source. The DSN may be a driver-native DSN or a
// mysql:///mariadb:// URL, which is converted to the driver format.
func OpenMySQL(dsn string) (*MySQL, error) {
	driverDSN, err := toDriverDSN(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", driverDSN)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &MySQL{db: db}, nil
}

// toDriverDSN converts mysql:// and mariadb:// URLs into the go-sql-driver
// DSN format; anything else passes through untouched.
func toDriverDSN(dsn string) (string, error) {
	if !strings.HasPrefix(dsn, "mysql://") && !strings.HasPrefix(dsn, "mariadb://") {
		return dsn, nil
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse dsn: %w", err)
	}
	user := ""
	pass := ""
	if u.User != nil {
		user = u.User.Username()
		pass, _ = u.User.Password()
	}
	db := strings.TrimPrefix(u.Path, "/")
	if user == "" || u.Host == "" || db == "" {
		return "", fmt.Errorf("dsn missing user, host or database")
	}
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=Local", user, pass, u.Host, db), nil
}

// Close closes the underlying connection pool.
func (s *MySQL) Close() error {
	return s.db.Close()
}

// Fetch loads all five collections.
func (s *MySQL) Fetch(ctx context.Context) (*dataset.Dataset, error) {
	ds := &dataset.Dataset{}

	var err error
	if ds.Partners, err = s.fetchPartners(ctx); err != nil {
		return nil, fmt.Errorf("load partners: %w", err)
	}
	if ds.Clients, err = s.fetchClients(ctx); err != nil {
		return nil, fmt.Errorf("load clients: %w", err)
	}
	if ds.Trades, err = s.fetchTrades(ctx); err != nil {
		return nil, fmt.Errorf("load trades: %w", err)
	}
	if ds.Deposits, err = s.fetchDeposits(ctx); err != nil {
		return nil, fmt.Errorf("load deposits: %w", err)
	}
	if ds.PartnerTiers, err = s.fetchPartnerTiers(ctx); err != nil {
		return nil, fmt.Errorf("load partner tiers: %w", err)
	}

	ds.Normalize()
	return ds, nil
}

func (s *MySQL) fetchPartners(ctx context.Context) ([]dataset.Partner, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT partner_id, name, tier FROM partners`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var partners []dataset.Partner
	for rows.Next() {
		var p dataset.Partner
		var name, tier sql.NullString
		if err := rows.Scan(&p.PartnerID, &name, &tier); err != nil {
			return nil, err
		}
		p.Name = name.String
		p.Tier = tier.String
		partners = append(partners, p)
	}
	return partners, rows.Err()
}

func (s *MySQL) fetchClients(ctx context.Context) ([]dataset.Client, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT customer_id, name, email, preferred_language, account_number,
		       join_date, account_type, country, tier, partner_id,
		       lifetime_deposits, commission_plan, tracking_link_used, sub_partner
		FROM clients`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []dataset.Client
	for rows.Next() {
		var (
			id                                  string
			name, email, preferredLanguage      sql.NullString
			accountNumber, accountType, country sql.NullString
			tier, partnerID, commissionPlan     sql.NullString
			trackingLinkUsed, subPartner        sql.NullString
			joinDate                            sql.NullTime
			lifetimeDeposits                    sql.NullFloat64
		)
		if err := rows.Scan(&id, &name, &email, &preferredLanguage,
			&accountNumber, &joinDate, &accountType, &country, &tier,
			&partnerID, &lifetimeDeposits, &commissionPlan,
			&trackingLinkUsed, &subPartner); err != nil {
			return nil, err
		}
		clients = append(clients, dataset.Client{
			CustomerID:        dataset.ID(id),
			Name:              name.String,
			Email:             email.String,
			PreferredLanguage: preferredLanguage.String,
			AccountNumber:     accountNumber.String,
			JoinDate:          dataset.Time{Time: joinDate.Time},
			AccountType:       accountType.String,
			Country:           country.String,
			Tier:              tier.String,
			PartnerID:         partnerID.String,
			LifetimeDeposits:  lifetimeDeposits.Float64,
			CommissionPlan:    commissionPlan.String,
			TrackingLinkUsed:  trackingLinkUsed.String,
			SubPartner:        subPartner.String,
		})
	}
	return clients, rows.Err()
}

func (s *MySQL) fetchTrades(ctx context.Context) ([]dataset.Trade, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT customer_id, date_time, commission, volume FROM trades`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []dataset.Trade
	for rows.Next() {
		var (
			id         string
			dateTime   sql.NullTime
			commission sql.NullFloat64
			volume     sql.NullFloat64
		)
		if err := rows.Scan(&id, &dateTime, &commission, &volume); err != nil {
			return nil, err
		}
		trades = append(trades, dataset.Trade{
			CustomerID: dataset.ID(id),
			DateTime:   dataset.Time{Time: dateTime.Time},
			Commission: commission.Float64,
			Volume:     volume.Float64,
		})
	}
	return trades, rows.Err()
}

func (s *MySQL) fetchDeposits(ctx context.Context) ([]dataset.Deposit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT customer_id, date_time, value FROM deposits`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deposits []dataset.Deposit
	for rows.Next() {
		var (
			id       string
			dateTime sql.NullTime
			value    sql.NullFloat64
		)
		if err := rows.Scan(&id, &dateTime, &value); err != nil {
			return nil, err
		}
		deposits = append(deposits, dataset.Deposit{
			CustomerID: dataset.ID(id),
			DateTime:   dataset.Time{Time: dateTime.Time},
			Value:      value.Float64,
		})
	}
	return deposits, rows.Err()
}

func (s *MySQL) fetchPartnerTiers(ctx context.Context) ([]dataset.PartnerTier, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tier, commission_range, reward FROM partner_tiers`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tiers []dataset.PartnerTier
	for rows.Next() {
		var t dataset.PartnerTier
		var rng, reward sql.NullString
		if err := rows.Scan(&t.Tier, &rng, &reward); err != nil {
			return nil, err
		}
		t.Range = rng.String
		t.Reward = reward.String
		tiers = append(tiers, t)
	}
	return tiers, rows.Err()
}
