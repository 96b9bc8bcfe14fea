package seeder

import (
	"fmt"
	"time"

	"github.com/Rana718/northseed/internal/config"
	"github.com/brianvoe/gofakeit/v6"
)

var (
	titlesOfCourtesy = []string{"Ms.", "Mrs.", "Dr."}
	unitsOnOrders    = []int{0, 10, 20, 30, 50, 60, 70, 80, 100}
	reorderLevels    = []int{0, 5, 10, 15, 20, 25, 30}
	discounts        = []float64{0.05, 0.15, 0.2, 0.25}

	quantityPerUnit = []string{
		"100 - 100 g pieces", "100 - 250 g bags", "10 - 200 g glasses", "10 - 4 oz boxes",
		"10 - 500 g pkgs.", "10 - 500 g pkgs.", "10 boxes x 12 pieces", "10 boxes x 20 bags",
		"10 boxes x 8 pieces", "10 kg pkg.", "10 pkgs.", "12 - 100 g bars", "12 - 100 g pkgs",
		"12 - 12 oz cans", "12 - 1 lb pkgs.", "12 - 200 ml jars", "12 - 250 g pkgs.",
		"12 - 355 ml cans", "12 - 500 g pkgs.", "750 cc per bottle", "5 kg pkg.",
		"50 bags x 30 sausgs.", "500 ml", "500 g", "48 pieces", "48 - 6 oz jars",
		"4 - 450 g glasses", "36 boxes", "32 - 8 oz bottles", "32 - 500 g boxes",
	}

	detailCountBuckets = []Bucket[int]{
		{Weight: 0.6, Values: []int{1, 2, 3, 4}},
		{Weight: 0.2, Values: []int{5, 6, 7, 8, 9, 10}},
		{Weight: 0.15, Values: []int{11, 12, 13, 14, 15, 16, 17}},
		{Weight: 0.05, Values: []int{18, 19, 20, 21, 22, 23, 24, 25}},
	}

	// FirstOrderDate is the order cursor of the first generated order.
	FirstOrderDate = time.Date(2016, time.January, 1, 0, 0, 0, 0, time.UTC)

	shippedFrom = time.Date(1996, time.January, 1, 0, 0, 0, 0, time.UTC)
	shippedTo   = time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC)
)

const (
	orderCursorStep = time.Minute
	requiredAfter   = 30 * 24 * time.Hour
	maxQuantity     = 130
)

// DataGenerator builds one synthetic record per call. Foreign keys are drawn
// from the dense id ranges of the profile, and cross-entity values go through
// the registry.
type DataGenerator struct {
	rnd          *Random
	fake         *gofakeit.Faker
	profile      config.Profile
	registry     *Registry
	detailCounts *Weighted[int]
}

func NewDataGenerator(rnd *Random, profile config.Profile, registry *Registry) (*DataGenerator, error) {
	detailCounts, err := NewWeighted(detailCountBuckets)
	if err != nil {
		return nil, fmt.Errorf("failed to build order detail sampler: %w", err)
	}

	return &DataGenerator{
		rnd:          rnd,
		fake:         gofakeit.New(rnd.rand.Int63()),
		profile:      profile,
		registry:     registry,
		detailCounts: detailCounts,
	}, nil
}

func (g *DataGenerator) companyName() string {
	name := g.fake.Company()
	g.registry.AddCompanyName(name)
	return name
}

func (g *DataGenerator) Customer(id int) Customer {
	c := Customer{
		ID:           id,
		CompanyName:  g.companyName(),
		ContactName:  g.fake.Name(),
		ContactTitle: g.fake.JobTitle(),
		Address:      g.fake.Street(),
		City:         g.fake.City(),
		Region:       g.fake.State(),
		Country:      g.fake.Country(),
		Phone:        g.fake.Phone(),
		Fax:          g.fake.Phone(),
	}
	if g.rnd.coin() {
		zip := g.fake.Zip()
		c.PostalCode = &zip
	}
	return c
}

func (g *DataGenerator) Employee(id int) Employee {
	e := Employee{
		ID:              id,
		FirstName:       g.fake.FirstName(),
		LastName:        g.fake.LastName(),
		Title:           g.fake.JobTitle(),
		TitleOfCourtesy: pick(g.rnd, titlesOfCourtesy),
		Address:         g.fake.Street(),
		City:            g.fake.City(),
		PostalCode:      g.fake.Zip(),
		Country:         g.fake.Country(),
		HomePhone:       g.fake.Phone(),
		Extension:       g.rnd.intn(428, 5467),
		Notes:           g.fake.Paragraph(1, 3, 12, " "),
	}
	// Recipients always point backwards so the referenced row is written first.
	if id > 1 && g.rnd.coin() {
		recipient := g.rnd.intn(1, id-1)
		e.RecipientID = &recipient
	}
	return e
}

// Order generates order id at cursor and returns the cursor for the next order.
func (g *DataGenerator) Order(id int, cursor time.Time) (Order, time.Time, error) {
	customerID, err := g.rnd.UniformInt(1, g.profile.Customers)
	if err != nil {
		return Order{}, cursor, fmt.Errorf("customer id for order %d: %w", id, err)
	}
	employeeID, err := g.rnd.UniformInt(1, g.profile.Employees)
	if err != nil {
		return Order{}, cursor, fmt.Errorf("employee id for order %d: %w", id, err)
	}

	o := Order{
		ID:           id,
		OrderDate:    cursor,
		RequiredDate: cursor.Add(requiredAfter),
		// Deliberately independent of the order cursor.
		ShippedDate:    g.fake.DateRange(shippedFrom, shippedTo),
		ShipVia:        g.rnd.intn(1, 3),
		Freight:        NewPrice(g.rnd.intn(0, 1000), g.rnd.intn(10, 99)),
		ShipName:       g.fake.Street(),
		ShipCity:       g.fake.City(),
		ShipRegion:     g.fake.State(),
		ShipPostalCode: g.fake.Zip(),
		ShipCountry:    g.fake.Country(),
		CustomerID:     customerID,
		EmployeeID:     employeeID,
	}
	return o, cursor.Add(orderCursorStep), nil
}

func (g *DataGenerator) Supplier(id int) Supplier {
	return Supplier{
		ID:           id,
		CompanyName:  g.companyName(),
		ContactName:  g.fake.Name(),
		ContactTitle: g.fake.JobTitle(),
		Address:      g.fake.Street(),
		City:         g.fake.City(),
		Region:       g.fake.State(),
		PostalCode:   g.fake.Zip(),
		Country:      g.fake.Country(),
		Phone:        g.fake.Phone(),
	}
}

// Product generates product id and records its unit price in the registry.
func (g *DataGenerator) Product(id int) (Product, error) {
	supplierID, err := g.rnd.UniformInt(1, g.profile.Suppliers)
	if err != nil {
		return Product{}, fmt.Errorf("supplier id for product %d: %w", id, err)
	}

	price := NewPrice(g.rnd.intn(3, 300), 0)
	if g.rnd.coin() {
		price = NewPrice(g.rnd.intn(3, 300), g.rnd.intn(5, 99))
	}

	p := Product{
		ID:              id,
		Name:            g.fake.Company(),
		QuantityPerUnit: pick(g.rnd, quantityPerUnit),
		UnitPrice:       price,
		UnitsInStock:    g.rnd.intn(0, 125),
		UnitsOnOrder:    pick(g.rnd, unitsOnOrders),
		ReorderLevel:    pick(g.rnd, reorderLevels),
		Discontinued:    g.rnd.intn(0, 1),
		SupplierID:      supplierID,
	}
	g.registry.RecordProductPrice(id, price)
	return p, nil
}

// OrderDetails generates the line items of one order. Unit prices come from
// the registry, never from storage.
func (g *DataGenerator) OrderDetails(orderID int) ([]OrderDetail, error) {
	count, err := g.detailCounts.Sample(g.rnd)
	if err != nil {
		return nil, fmt.Errorf("line count for order %d: %w", orderID, err)
	}

	details := make([]OrderDetail, 0, count)
	for i := 0; i < count; i++ {
		productID, err := g.rnd.UniformInt(1, g.profile.Products)
		if err != nil {
			return nil, fmt.Errorf("product id for order %d: %w", orderID, err)
		}
		price, err := g.registry.ProductPrice(productID)
		if err != nil {
			return nil, err
		}

		discount := 0.0
		if !g.rnd.coin() {
			discount = pick(g.rnd, discounts)
		}

		details = append(details, OrderDetail{
			UnitPrice: price,
			Quantity:  g.rnd.intn(1, maxQuantity),
			Discount:  discount,
			OrderID:   orderID,
			ProductID: productID,
		})
	}
	return details, nil
}

func (g *DataGenerator) Shipper(id int) (Shipper, error) {
	name, err := g.registry.RandomCompanyName(g.rnd)
	if err != nil {
		return Shipper{}, fmt.Errorf("shipper %d: %w", id, err)
	}
	return Shipper{
		ID:          id,
		CompanyName: name,
		Phone:       g.fake.Phone(),
	}, nil
}
