package memory

import (
	"cmp"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"comercialpereira/backend/internal/domain"
)

// Store keeps every table in maps guarded by one mutex. Each write method
// holds the write lock for its whole body, which gives the same all-or-nothing
// behaviour the postgres store gets from a serializable transaction.
type Store struct {
	mu         sync.RWMutex
	seq        map[string]int64
	users      map[int64]domain.User
	categories map[int64]domain.Category
	suppliers  map[int64]domain.Supplier
	products   map[int64]domain.Product
	inventory  map[int64]domain.Inventory
	movements  []domain.InventoryMovement
	customers  map[int64]domain.Customer
	sales      map[int64]domain.Sale
	auditLogs  []domain.AuditLog
	now        func() time.Time
}

func New() *Store {
	return &Store{
		seq:        make(map[string]int64),
		users:      make(map[int64]domain.User),
		categories: make(map[int64]domain.Category),
		suppliers:  make(map[int64]domain.Supplier),
		products:   make(map[int64]domain.Product),
		inventory:  make(map[int64]domain.Inventory),
		movements:  make([]domain.InventoryMovement, 0, 128),
		customers:  make(map[int64]domain.Customer),
		sales:      make(map[int64]domain.Sale),
		auditLogs:  make([]domain.AuditLog, 0, 128),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// seedUsers builds the demo accounts. Passwords come from
// SEED_ADMIN_PASSWORD, SEED_MANAGER_PASSWORD and SEED_SALESPERSON_PASSWORD;
// development defaults are used when they are unset.
func seedUsers(now time.Time) []domain.User {
	accounts := []struct {
		name     string
		email    string
		role     domain.Role
		envKey   string
		fallback string
	}{
		{"Administrador", "admin@comercialpereira.com.br", domain.RoleAdmin, "SEED_ADMIN_PASSWORD", "Adm1n@Pereira"},
		{"Gerente Loja", "gerente@comercialpereira.com.br", domain.RoleManager, "SEED_MANAGER_PASSWORD", "Gerente@2024"},
		{"Vendedor Balcao", "vendedor@comercialpereira.com.br", domain.RoleSalesperson, "SEED_SALESPERSON_PASSWORD", "Vendas@2024"},
	}

	users := make([]domain.User, 0, len(accounts))
	usedDefaults := false
	for _, a := range accounts {
		password := os.Getenv(a.envKey)
		if password == "" {
			password = a.fallback
			usedDefaults = true
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatal().Err(err).Str("email", a.email).Msg("failed to hash seed password")
		}
		users = append(users, domain.User{
			Name:         a.name,
			Email:        a.email,
			PasswordHash: string(hash),
			Role:         a.role,
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}
	if usedDefaults {
		log.Warn().Msg("memory store is using default seed credentials; set SEED_*_PASSWORD to override")
	}
	return users
}

// NewSeeded returns a store populated with demo users, catalog, stock and
// customers.
func NewSeeded() *Store {
	s := New()
	now := s.now()

	for _, u := range seedUsers(now) {
		u.ID = s.next("user")
		s.users[u.ID] = u
	}

	for _, c := range []domain.Category{
		{Name: "Papelaria", Description: "Cadernos, canetas e material de escritório", CNAE: "46.47-8-01"},
		{Name: "Ferragens", Description: "Ferramentas manuais e fixadores", CNAE: "46.72-9-00"},
		{Name: "Material Elétrico", Description: "Fios, tomadas e disjuntores", CNAE: "46.73-7-00"},
		{Name: "Embalagens", Description: "Caixas, sacolas e fitas", CNAE: "46.86-9-02"},
	} {
		c.ID = s.next("category")
		c.IsActive = true
		c.CreatedAt, c.UpdatedAt = now, now
		s.categories[c.ID] = c
	}

	supplier := domain.Supplier{
		ID:            s.next("supplier"),
		Name:          "Distribuidora Paulista Ltda",
		ContactPerson: "Carlos Mendes",
		Email:         "vendas@distpaulista.com.br",
		Phone:         "(11) 3333-4444",
		Address:       "Rua das Indústrias, 450",
		City:          "São Paulo",
		State:         "SP",
		ZipCode:       "01000-000",
		CNPJ:          "11444777000161",
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.suppliers[supplier.ID] = supplier

	for _, p := range []struct {
		code, name, desc, price string
		category                int64
		supplier                bool
		qty, min                int
		location                string
	}{
		{"CAD-001", "Caderno Universitário 200 folhas", "Caderno espiral capa dura com 10 matérias", "24.90", 1, true, 120, 20, "A1"},
		{"CAN-AZ-01", "Caneta Esferográfica Azul", "Caneta esferográfica ponta média 1.0mm", "2.50", 1, true, 500, 100, "A1"},
		{"MAR-500", "Martelo de Unha 27mm", "Martelo de aço forjado com cabo de madeira", "45.00", 2, false, 30, 10, "B2"},
		{"PAR-100", "Parafuso Philips 4x40", "Caixa com 100 parafusos zincados", "18.75", 2, true, 8, 10, "B2"},
		{"FIO-25", "Fio Flexível 2,5mm 100m", "Rolo de fio flexível antichama 750V", "189.90", 3, false, 0, 5, "C1"},
		{"CX-PAP-30", "Caixa de Papelão 30x30", "Caixa de papelão ondulado parede simples", "4.20", 4, true, 250, 50, "D4"},
	} {
		product := domain.Product{
			ID:          s.next("product"),
			Name:        p.name,
			Description: p.desc,
			Price:       decimal.RequireFromString(p.price),
			Code:        p.code,
			CategoryID:  p.category,
			IsActive:    true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if p.supplier {
			id := supplier.ID
			product.SupplierID = &id
		}
		s.products[product.ID] = product
		s.inventory[product.ID] = domain.Inventory{
			ID:         s.next("inventory"),
			ProductID:  product.ID,
			Quantity:   p.qty,
			MinStock:   p.min,
			Location:   p.location,
			LastUpdate: now,
		}
	}

	for _, c := range []domain.Customer{
		{Name: "Maria Oliveira", Email: "maria.oliveira@email.com", Phone: "(11) 98888-7777", Document: "52998224725", Type: domain.CustomerRetail, Address: "Av. Paulista, 1000", City: "São Paulo", State: "SP", ZipCode: "01310-100"},
		{Name: "Construtora Horizonte Ltda", Email: "compras@horizonte.com.br", Phone: "(21) 3222-1111", Document: "11222333000181", Type: domain.CustomerWholesale, Address: "Rua do Porto, 85", City: "Rio de Janeiro", State: "RJ", ZipCode: "20000-000"},
		{Name: "João Santos", Document: "11144477735", Type: domain.CustomerRetail},
	} {
		c.ID = s.next("customer")
		c.IsActive = true
		c.CreatedAt, c.UpdatedAt = now, now
		s.customers[c.ID] = c
	}

	return s
}

// SetClock replaces the time source. Tests use it to place records in the past.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) next(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

func paginate[T any](items []T, q domain.ListQuery) []T {
	if q.Unbounded() {
		return items
	}
	start := q.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + q.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func ordered[T cmp.Ordered](a T, b T, desc bool) int {
	if desc {
		return cmp.Compare(b, a)
	}
	return cmp.Compare(a, b)
}

func orderedDecimal(a decimal.Decimal, b decimal.Decimal, desc bool) int {
	if desc {
		return b.Cmp(a)
	}
	return a.Cmp(b)
}

func orderedTime(a time.Time, b time.Time, desc bool) int {
	if desc {
		return b.Compare(a)
	}
	return a.Compare(b)
}

func containsFold(haystack string, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func matchBool(want *bool, got bool) bool {
	return want == nil || *want == got
}

func sameFold(a string, b string) bool {
	return a != "" && strings.EqualFold(a, b)
}
