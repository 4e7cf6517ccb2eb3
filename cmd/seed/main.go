// Command seed fills a database with realistic demo data: an admin account,
// categories, suppliers, products with stock, customers and a spread of
// sales in every status. Everything goes through the service layer so the
// usual validation and audit rules apply.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"comercialpereira/backend/internal/config"
	"comercialpereira/backend/internal/document"
	"comercialpereira/backend/internal/domain"
	"comercialpereira/backend/internal/logging"
	"comercialpereira/backend/internal/service"
	"comercialpereira/backend/internal/store"
	pgstore "comercialpereira/backend/internal/store/postgres"
)

type options struct {
	Seed          uint64
	Suppliers     int
	Products      int
	Customers     int
	Sales         int
	AdminEmail    string
	AdminPassword string
}

func main() {
	opts := options{}
	flag.Uint64Var(&opts.Seed, "seed", 0, "random seed, 0 picks one")
	flag.IntVar(&opts.Suppliers, "suppliers", 5, "suppliers to create")
	flag.IntVar(&opts.Products, "products", 40, "products to create")
	flag.IntVar(&opts.Customers, "customers", 30, "customers to create")
	flag.IntVar(&opts.Sales, "sales", 120, "sales to create")
	flag.StringVar(&opts.AdminEmail, "admin-email", "admin@comercialpereira.com.br", "admin account used to own the data")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logging.Init(cfg.Env)
	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is required")
	}
	opts.AdminPassword = os.Getenv("SEED_ADMIN_PASSWORD")
	if opts.AdminPassword == "" {
		log.Fatal().Msg("SEED_ADMIN_PASSWORD is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pg, err := pgstore.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres unavailable")
	}
	defer pg.Close()
	if err := pg.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("migrations failed")
	}

	summary, err := run(ctx, pg, opts)
	if err != nil {
		log.Fatal().Err(err).Msg("seed failed")
	}
	log.Info().
		Int("categories", summary.Categories).
		Int("suppliers", summary.Suppliers).
		Int("products", summary.Products).
		Int("customers", summary.Customers).
		Int("sales", summary.Sales).
		Int("skipped", summary.Skipped).
		Msg("seed finished")
}

type summary struct {
	Categories int
	Suppliers  int
	Products   int
	Customers  int
	Sales      int
	Skipped    int
}

type seeder struct {
	svc     *service.Service
	repo    store.Repository
	faker   *gofakeit.Faker
	summary summary

	categories []int64
	suppliers  []int64
	products   []domain.Product
	customers  []int64
}

func run(ctx context.Context, repo store.Repository, opts options) (summary, error) {
	s := &seeder{
		svc:   service.New(repo, service.Options{}),
		repo:  repo,
		faker: gofakeit.New(opts.Seed),
	}

	admin, err := s.ensureAdmin(ctx, opts.AdminEmail, opts.AdminPassword)
	if err != nil {
		return summary{}, err
	}
	ctx = service.WithActor(ctx, domain.Actor{UserID: admin.ID, Name: admin.Name, Email: admin.Email, Role: admin.Role})

	steps := []func(context.Context) error{
		s.seedCategories,
		func(ctx context.Context) error { return s.seedSuppliers(ctx, opts.Suppliers) },
		func(ctx context.Context) error { return s.seedProducts(ctx, opts.Products) },
		func(ctx context.Context) error { return s.seedCustomers(ctx, opts.Customers) },
		func(ctx context.Context) error { return s.seedSales(ctx, opts.Sales) },
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return s.summary, err
		}
	}
	return s.summary, nil
}

func (s *seeder) ensureAdmin(ctx context.Context, email string, password string) (*domain.User, error) {
	existing, err := s.repo.GetUserByEmail(ctx, email)
	if err == nil {
		if existing.Role != domain.RoleAdmin || !existing.IsActive {
			return nil, fmt.Errorf("user %s exists but is not an active admin", email)
		}
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("look up admin: %w", err)
	}
	hash, err := service.HashPassword(password)
	if err != nil {
		return nil, err
	}
	return s.repo.CreateUser(ctx, domain.User{
		Name:         "Administrador",
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		IsActive:     true,
	})
}

// skip reports whether err is a business rejection the seeder can step over.
// Anything else aborts the run.
func (s *seeder) skip(err error, what string) bool {
	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		return false
	}
	switch svcErr.Code {
	case service.CodeConflict, service.CodeValidation, service.CodeInsufficient, service.CodeTransition:
		s.summary.Skipped++
		log.Debug().Str("code", svcErr.Code).Str("what", what).Msg(svcErr.Message)
		return true
	}
	return false
}

var seedCategories = []domain.CategoryCreateRequest{
	{Name: "Papelaria", Description: "Cadernos, canetas e material de escritório", CNAE: "46.47-8-01"},
	{Name: "Ferragens", Description: "Ferramentas manuais e fixadores", CNAE: "46.72-9-00"},
	{Name: "Material Elétrico", Description: "Fios, tomadas e disjuntores", CNAE: "46.73-7-00"},
	{Name: "Embalagens", Description: "Caixas, sacolas e fitas", CNAE: "46.86-9-02"},
}

func (s *seeder) seedCategories(ctx context.Context) error {
	for _, req := range seedCategories {
		created, err := s.svc.CreateCategory(ctx, req)
		if err != nil {
			if s.skip(err, "category "+req.Name) {
				continue
			}
			return err
		}
		s.summary.Categories++
		s.categories = append(s.categories, created.ID)
	}

	// Pick up categories from an earlier run too.
	all, _, err := s.repo.ListCategories(ctx, domain.CategoryFilter{ListQuery: domain.ListQuery{Limit: -1}})
	if err != nil {
		return err
	}
	s.categories = s.categories[:0]
	for _, c := range all {
		if c.IsActive {
			s.categories = append(s.categories, c.ID)
		}
	}
	if len(s.categories) == 0 {
		return errors.New("no active categories to attach products to")
	}
	return nil
}

func (s *seeder) seedSuppliers(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("%s Distribuidora %d Ltda", s.faker.LastName(), i+1)
		req := domain.SupplierCreateRequest{
			Name:          name,
			ContactPerson: lettersOnly(s.faker.FirstName() + " " + s.faker.LastName()),
			Email:         fmt.Sprintf("vendas%d.%s@example.com", i+1, strings.ToLower(lettersOnly(s.faker.LastName()))),
			Phone:         s.phone(),
			Address:       fmt.Sprintf("Rua %s, %d", s.faker.LastName(), s.faker.IntRange(10, 2000)),
			City:          s.faker.City(),
			State:         s.state(),
			ZipCode:       fmt.Sprintf("%05d-%03d", s.faker.IntRange(1000, 99999), s.faker.IntRange(0, 999)),
			CNPJ:          s.cnpj(),
		}
		created, err := s.svc.CreateSupplier(ctx, req)
		if err != nil {
			if s.skip(err, "supplier "+name) {
				continue
			}
			return err
		}
		s.summary.Suppliers++
		s.suppliers = append(s.suppliers, created.ID)
	}
	return nil
}

func (s *seeder) seedProducts(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		name := s.faker.ProductName()
		minStock := s.faker.IntRange(5, 20)
		req := domain.ProductCreateRequest{
			Name:         name,
			Description:  fmt.Sprintf("%s, %s.", name, strings.ToLower(s.faker.ProductFeature())),
			Price:        decimal.NewFromFloat(s.faker.Price(1, 500)).Round(2),
			Code:         fmt.Sprintf("PRD-%04d", i+1),
			Barcode:      s.barcode(),
			CategoryID:   s.categories[s.faker.IntRange(0, len(s.categories)-1)],
			InitialStock: s.faker.IntRange(0, 200),
			MinStock:     &minStock,
			Location:     fmt.Sprintf("%c%d", 'A'+rune(s.faker.IntRange(0, 5)), s.faker.IntRange(1, 9)),
		}
		if len(s.suppliers) > 0 && s.faker.Bool() {
			id := s.suppliers[s.faker.IntRange(0, len(s.suppliers)-1)]
			req.SupplierID = &id
		}
		created, err := s.svc.CreateProduct(ctx, req)
		if err != nil {
			if s.skip(err, "product "+req.Code) {
				continue
			}
			return err
		}
		s.summary.Products++
		s.products = append(s.products, created)
	}
	return nil
}

func (s *seeder) seedCustomers(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		req := domain.CustomerCreateRequest{
			Name:    s.faker.FirstName() + " " + s.faker.LastName(),
			Email:   fmt.Sprintf("cliente%d.%s@example.com", i+1, strings.ToLower(lettersOnly(s.faker.LastName()))),
			Phone:   s.phone(),
			Type:    domain.CustomerRetail,
			Address: fmt.Sprintf("Rua %s, %d", s.faker.LastName(), s.faker.IntRange(10, 2000)),
			City:    s.faker.City(),
			State:   s.state(),
		}
		if i%5 == 4 {
			req.Name = fmt.Sprintf("%s Comércio Ltda", s.faker.LastName())
			req.Type = domain.CustomerWholesale
			req.Document = s.cnpj()
		} else {
			req.Document = s.cpf()
		}
		created, err := s.svc.CreateCustomer(ctx, req)
		if err != nil {
			if s.skip(err, "customer "+req.Name) {
				continue
			}
			return err
		}
		s.summary.Customers++
		s.customers = append(s.customers, created.ID)
	}
	return nil
}

func (s *seeder) seedSales(ctx context.Context, n int) error {
	if len(s.customers) == 0 || len(s.products) == 0 {
		return nil
	}
	for i := 0; i < n; i++ {
		req := domain.SaleCreateRequest{
			CustomerID: s.customers[s.faker.IntRange(0, len(s.customers)-1)],
			Items:      s.saleItems(),
		}
		if s.faker.IntRange(0, 9) == 0 {
			req.Discount = decimal.NewFromInt(int64(s.faker.IntRange(1, 10)))
		}
		sale, err := s.svc.CreateSale(ctx, req)
		if err != nil {
			if s.skip(err, "sale") {
				continue
			}
			return err
		}
		s.summary.Sales++
		if err := s.advance(ctx, sale.ID); err != nil {
			return err
		}
	}
	return nil
}

// advance walks a new draft through the lifecycle. Most sales complete; a few
// stay open or get cancelled so every status shows up in reports.
func (s *seeder) advance(ctx context.Context, id int64) error {
	roll := s.faker.IntRange(0, 99)
	steps := []func(context.Context, int64) (domain.Sale, error){s.svc.SubmitSale, s.svc.ConfirmSale, s.svc.CompleteSale}
	switch {
	case roll < 5:
		return nil
	case roll < 10:
		steps = steps[:1]
	case roll < 15:
		steps = steps[:2]
	}
	for _, step := range steps {
		if _, err := step(ctx, id); err != nil {
			if s.skip(err, fmt.Sprintf("sale %d", id)) {
				return nil
			}
			return err
		}
	}
	if roll >= 15 && roll < 20 {
		if _, err := s.svc.CancelSale(ctx, id, domain.SaleCancelRequest{Reason: "cliente desistiu"}); err != nil && !s.skip(err, "cancel") {
			return err
		}
	}
	return nil
}

func (s *seeder) saleItems() []domain.SaleItemInput {
	count := s.faker.IntRange(1, 3)
	if count > len(s.products) {
		count = len(s.products)
	}
	picked := make(map[int64]struct{}, count)
	items := make([]domain.SaleItemInput, 0, count)
	for len(items) < count {
		p := s.products[s.faker.IntRange(0, len(s.products)-1)]
		if _, dup := picked[p.ID]; dup {
			continue
		}
		picked[p.ID] = struct{}{}
		items = append(items, domain.SaleItemInput{ProductID: p.ID, Quantity: s.faker.IntRange(1, 4)})
	}
	return items
}

var ufs = []string{"SP", "RJ", "MG", "PR", "SC", "RS", "BA", "GO", "PE", "DF"}

func (s *seeder) state() string {
	return s.faker.RandomString(ufs)
}

func (s *seeder) phone() string {
	return fmt.Sprintf("(%02d) 9%04d-%04d", s.faker.IntRange(11, 99), s.faker.IntRange(0, 9999), s.faker.IntRange(0, 9999))
}

func (s *seeder) barcode() string {
	return fmt.Sprintf("789%010d", s.faker.IntRange(0, 999999999))
}

func (s *seeder) cpf() string {
	return s.withCheckDigits(9)
}

func (s *seeder) cnpj() string {
	return s.withCheckDigits(8)
}

// withCheckDigits draws n random digits and appends valid check digits. For
// an 8 digit root the branch "0001" is inserted before computing them.
func (s *seeder) withCheckDigits(n int) string {
	for {
		var b strings.Builder
		for i := 0; i < n; i++ {
			b.WriteByte(byte('0' + s.faker.IntRange(0, 9)))
		}
		base := b.String()
		if n == 8 {
			base += "0001"
		}
		digits, err := document.CheckDigits(base)
		if err != nil {
			continue
		}
		full := base + digits
		if document.Validate(full).Valid {
			return full
		}
	}
}

func lettersOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == ' ' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
