//-------------------------------------------------------------------------
//
// pgEdge Star Loader
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package datagen

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pgEdge/pgedge-starload/internal/config"
	"github.com/pgEdge/pgedge-starload/internal/geo"
	"github.com/pgEdge/pgedge-starload/internal/logging"
	"github.com/pgEdge/pgedge-starload/internal/source"
)

// Defect kinds injected into the extracts.
const (
	DefectCityTypo          = "city_typo"
	DefectUnknownCity       = "unknown_city"
	DefectDuplicateCustomer = "duplicate_customer"
	DefectBadTimestamp      = "bad_timestamp"
	DefectOrphanItem        = "orphan_item"
	DefectNegativeFreight   = "negative_freight"
	DefectMissingPayment    = "missing_payment"
	DefectBadInstallments   = "bad_installments"
	DefectBadScore          = "bad_score"
)

const timestampLayout = "2006-01-02 15:04:05"

// Purchase dates span the period covered by the public dataset.
var (
	firstPurchase = time.Date(2016, time.September, 4, 0, 0, 0, 0, time.UTC)
	lastPurchase  = time.Date(2018, time.October, 17, 0, 0, 0, 0, time.UTC)
)

var (
	orderStatuses = []string{"delivered", "shipped", "canceled", "invoiced", "processing"}
	statusWeights = []int{90, 4, 3, 2, 1}

	paymentTypes   = []string{"credit_card", "boleto", "voucher", "debit_card"}
	paymentWeights = []int{74, 19, 5, 2}

	reviewScores = []int{1, 2, 3, 4, 5}
	scoreWeights = []int{11, 3, 8, 19, 59}
)

// ProgressInterval is how often to log progress (in rows).
const ProgressInterval = 100000

// ProgressReporter tracks and reports extract writing progress.
type ProgressReporter struct {
	tableName        string
	totalRows        int64
	currentRow       int64
	progressInterval int64
}

// NewProgressReporter creates a new progress reporter.
func NewProgressReporter(tableName string, totalRows int64, interval int64) *ProgressReporter {
	return &ProgressReporter{
		tableName:        tableName,
		totalRows:        totalRows,
		progressInterval: max(interval, 1),
	}
}

// Update updates the progress and logs if necessary.
func (p *ProgressReporter) Update(rows int64) {
	oldRow := p.currentRow
	p.currentRow += rows

	if p.currentRow/p.progressInterval > oldRow/p.progressInterval {
		pct := float64(p.currentRow) / float64(p.totalRows) * 100
		logging.Info().
			Str("table", p.tableName).
			Int64("rows", p.currentRow).
			Int64("total", p.totalRows).
			Float64("percent", pct).
			Msg("Generating data")
	}
}

// Done logs completion.
func (p *ProgressReporter) Done() {
	logging.Info().
		Str("table", p.tableName).
		Int64("rows", p.currentRow).
		Msg("Table complete")
}

// Summary describes the generated extracts.
type Summary struct {
	Rows    map[string]int `yaml:"rows"`
	Defects map[string]int `yaml:"defects"`
}

// Generator writes a synthetic extract set.
type Generator struct {
	faker *Faker
	cfg   config.GenerateConfig
	files config.SourceConfig

	summary Summary
}

// New creates a Generator. A zero seed generates different data each run.
func New(cfg config.GenerateConfig, files config.SourceConfig) *Generator {
	f := NewFaker()
	if cfg.Seed != 0 {
		f = NewFakerWithSeed(cfg.Seed)
	}
	return &Generator{faker: f, cfg: cfg, files: files}
}

type party struct {
	id    string
	zip   string
	city  string
	state string
}

type order struct {
	id       string
	customer string
	total    float64
}

// extract is one generated CSV file.
type extract struct {
	table  string
	file   string
	header []string
	rows   [][]string
}

// Generate writes the seven extract files to the output directory.
func (g *Generator) Generate(ctx context.Context) (Summary, error) {
	g.summary = Summary{Rows: make(map[string]int), Defects: make(map[string]int)}

	if err := os.MkdirAll(g.cfg.OutputDir, 0o755); err != nil {
		return g.summary, fmt.Errorf("failed to create output directory: %w", err)
	}

	cities := g.cities()
	customers := g.customers()
	sellers := g.sellers()
	orders, orderRows := g.orders(customers.parties)
	items := g.items(orders, sellers.parties)
	payments := g.payments(orders)
	reviews := g.reviews(orders)

	extracts := []extract{
		orderRows, items, customers.extract, sellers.extract, payments, reviews, cities,
	}
	for _, e := range extracts {
		if err := ctx.Err(); err != nil {
			return g.summary, err
		}
		if err := g.write(e); err != nil {
			return g.summary, err
		}
		g.summary.Rows[e.table] = len(e.rows)
	}
	return g.summary, nil
}

func (g *Generator) defect(kind string) bool {
	if !g.faker.Chance(g.cfg.DefectRate) {
		return false
	}
	g.summary.Defects[kind]++
	return true
}

func (g *Generator) write(e extract) error {
	path := filepath.Join(g.cfg.OutputDir, e.file)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(e.header); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	progress := NewProgressReporter(e.table, int64(len(e.rows)), ProgressInterval)
	for _, row := range e.rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		progress.Update(1)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	progress.Done()

	return f.Close()
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func (g *Generator) cities() extract {
	e := extract{
		table: source.TableCities,
		file:  g.files.Cities,
		header: []string{"CITY", "STATE", "CAPITAL", "IBGE_POP", "IDHM", "IDHM_Renda",
			"IDHM_Longevidade", "IDHM_Educacao", "GDP_CAPITA", "CATEGORIA_TUR"},
	}
	for _, c := range Cities {
		e.rows = append(e.rows, []string{
			c.Name, c.State, flag(c.Capital),
			strconv.FormatInt(c.Population, 10),
			strconv.FormatFloat(c.HDI, 'f', 3, 64),
			strconv.FormatFloat(c.HDIIncome, 'f', 3, 64),
			strconv.FormatFloat(c.HDILong, 'f', 3, 64),
			strconv.FormatFloat(c.HDIEdu, 'f', 3, 64),
			strconv.FormatFloat(c.GDPCapita, 'f', 1, 64),
			c.Category,
		})
	}
	return e
}

// place picks a reference city and renders it the way the order system
// stores it: lower case without accents, sometimes misspelled or unknown.
func (g *Generator) place() (string, string) {
	c := Choose(g.faker, Cities)
	name := geo.Normalize(c.Name)
	switch {
	case g.defect(DefectCityTypo):
		name = g.faker.Transpose(name)
	case g.defect(DefectUnknownCity):
		name = geo.Normalize(g.faker.City())
	}
	return name, c.State
}

type parties struct {
	extract
	parties []party
}

func (g *Generator) customers() parties {
	p := parties{extract: extract{
		table: source.TableCustomers,
		file:  g.files.Customers,
		header: []string{"customer_id", "customer_unique_id", "customer_zip_code_prefix",
			"customer_city", "customer_state"},
	}}
	for i := 0; i < g.cfg.Customers; i++ {
		city, state := g.place()
		c := party{id: g.faker.ID(), zip: g.faker.Digits(5), city: city, state: state}
		p.parties = append(p.parties, c)
		p.rows = append(p.rows, []string{c.id, g.faker.ID(), c.zip, c.city, c.state})

		if i > 0 && g.defect(DefectDuplicateCustomer) {
			prev := p.parties[i-1]
			other, otherState := g.place()
			p.rows = append(p.rows, []string{prev.id, g.faker.ID(), prev.zip, other, otherState})
		}
	}
	return p
}

func (g *Generator) sellers() parties {
	p := parties{extract: extract{
		table:  source.TableSellers,
		file:   g.files.Sellers,
		header: []string{"seller_id", "seller_zip_code_prefix", "seller_city", "seller_state"},
	}}
	for i := 0; i < g.cfg.Sellers; i++ {
		city, state := g.place()
		s := party{id: g.faker.ID(), zip: g.faker.Digits(5), city: city, state: state}
		p.parties = append(p.parties, s)
		p.rows = append(p.rows, []string{s.id, s.zip, s.city, s.state})
	}
	return p
}

func (g *Generator) orders(customers []party) ([]*order, extract) {
	e := extract{
		table: source.TableOrders,
		file:  g.files.Orders,
		header: []string{"order_id", "customer_id", "order_status", "order_purchase_timestamp",
			"order_approved_at", "order_delivered_carrier_date", "order_delivered_customer_date",
			"order_estimated_delivery_date"},
	}

	orders := make([]*order, 0, g.cfg.Orders)
	for i := 0; i < g.cfg.Orders; i++ {
		o := &order{id: g.faker.ID(), customer: Choose(g.faker, customers).id}
		orders = append(orders, o)

		status := ChooseWeighted(g.faker, orderStatuses, statusWeights)
		purchased := g.faker.DateRange(firstPurchase, lastPurchase)
		approved := purchased.Add(time.Duration(g.faker.Int(10, 600)) * time.Minute)
		estimated := purchased.AddDate(0, 0, g.faker.Int(10, 40))

		var carrier, delivered string
		if status == "delivered" {
			c := approved.AddDate(0, 0, g.faker.Int(1, 5))
			carrier = c.Format(timestampLayout)
			delivered = c.AddDate(0, 0, g.faker.Int(1, 25)).Format(timestampLayout)
		}

		purchase := purchased.Format(timestampLayout)
		if g.defect(DefectBadTimestamp) {
			purchase = purchased.Format("02/01/2006 15h04")
		}

		e.rows = append(e.rows, []string{
			o.id, o.customer, status, purchase, approved.Format(timestampLayout),
			carrier, delivered, estimated.Format("2006-01-02") + " 00:00:00",
		})
	}
	return orders, e
}

func (g *Generator) items(orders []*order, sellers []party) extract {
	e := extract{
		table: source.TableOrderItems,
		file:  g.files.OrderItems,
		header: []string{"order_id", "order_item_id", "product_id", "seller_id",
			"shipping_limit_date", "price", "freight_value"},
	}
	for _, o := range orders {
		orderID := o.id
		if g.defect(DefectOrphanItem) {
			orderID = g.faker.ID()
		}
		n := ChooseWeighted(g.faker, []int{1, 2, 3}, []int{85, 11, 4})
		limit := g.faker.DateRange(firstPurchase, lastPurchase).Format(timestampLayout)
		for seq := 1; seq <= n; seq++ {
			price := g.faker.Price(5, 500)
			freight := g.faker.Float64(0, 50)
			o.total += price + freight

			freightText := money(freight)
			if g.defect(DefectNegativeFreight) {
				freightText = money(-freight - 1)
			}
			e.rows = append(e.rows, []string{
				orderID, strconv.Itoa(seq), g.faker.ID(), Choose(g.faker, sellers).id,
				limit, money(price), freightText,
			})
		}
	}
	return e
}

func (g *Generator) payments(orders []*order) extract {
	e := extract{
		table: source.TablePayments,
		file:  g.files.Payments,
		header: []string{"order_id", "payment_sequential", "payment_type",
			"payment_installments", "payment_value"},
	}
	for _, o := range orders {
		if g.defect(DefectMissingPayment) {
			continue
		}

		total := o.total
		seq := 1
		if g.faker.Chance(0.03) && total > 20 {
			voucher := float64(g.faker.Int(5, 20))
			e.rows = append(e.rows, []string{o.id, "2", "voucher", "1", money(voucher)})
			total -= voucher
		}

		kind := ChooseWeighted(g.faker, paymentTypes, paymentWeights)
		installments := 1
		if kind == "credit_card" {
			installments = g.faker.Int(1, 10)
		}
		installmentsText := strconv.Itoa(installments)
		if g.defect(DefectBadInstallments) {
			installmentsText = "0"
		}
		e.rows = append(e.rows, []string{o.id, strconv.Itoa(seq), kind, installmentsText, money(total)})
	}
	return e
}

func (g *Generator) reviews(orders []*order) extract {
	e := extract{
		table: source.TableReviews,
		file:  g.files.Reviews,
		header: []string{"review_id", "order_id", "review_score", "review_comment_title",
			"review_comment_message", "review_creation_date", "review_answer_timestamp"},
	}
	for _, o := range orders {
		if !g.faker.Chance(0.9) {
			continue
		}
		score := strconv.Itoa(ChooseWeighted(g.faker, reviewScores, scoreWeights))
		if g.defect(DefectBadScore) {
			score = "7"
		}
		var comment string
		if g.faker.Chance(0.4) {
			comment = g.faker.Sentence(g.faker.Int(3, 40))
		}
		created := g.faker.DateRange(firstPurchase, lastPurchase)
		answered := created.Add(time.Duration(g.faker.Int(1, 72)) * time.Hour)
		e.rows = append(e.rows, []string{
			g.faker.ID(), o.id, score, "", comment,
			created.Format("2006-01-02") + " 00:00:00", answered.Format(timestampLayout),
		})
	}
	return e
}
