package seeder

import (
	"testing"
	"time"

	"github.com/Rana718/northseed/internal/config"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testProfile = config.Profile{
	Employees: 10,
	Customers: 20,
	Orders:    40,
	Products:  30,
	Suppliers: 5,
	Shippers:  8,
}

func newTestGenerator(t *testing.T, seed int64) (*DataGenerator, *Registry) {
	t.Helper()
	reg := NewRegistry()
	gen, err := NewDataGenerator(NewRandom(seed), testProfile, reg)
	require.NoError(t, err)
	return gen, reg
}

func TestCustomerRegistersCompanyName(t *testing.T) {
	gen, reg := newTestGenerator(t, 1)

	c := gen.Customer(1)
	assert.Equal(t, 1, c.ID)
	assert.NotEmpty(t, c.CompanyName)
	assert.Equal(t, 1, reg.CompanyNameCount())

	gen.Supplier(1)
	assert.Equal(t, 2, reg.CompanyNameCount())
}

func TestEmployeeRecipientPointsBackwards(t *testing.T) {
	gen, _ := newTestGenerator(t, 2)

	first := gen.Employee(1)
	assert.Nil(t, first.RecipientID)

	withRecipient := 0
	for id := 2; id <= 200; id++ {
		e := gen.Employee(id)
		assert.GreaterOrEqual(t, e.Extension, 428)
		assert.LessOrEqual(t, e.Extension, 5467)
		assert.Contains(t, titlesOfCourtesy, e.TitleOfCourtesy)
		if e.RecipientID != nil {
			withRecipient++
			assert.GreaterOrEqual(t, *e.RecipientID, 1)
			assert.Less(t, *e.RecipientID, id)
		}
	}
	assert.Greater(t, withRecipient, 0)
}

func TestOrderCursorAdvancesOneMinute(t *testing.T) {
	gen, _ := newTestGenerator(t, 3)

	cursor := FirstOrderDate
	for id := 1; id <= testProfile.Orders; id++ {
		o, next, err := gen.Order(id, cursor)
		require.NoError(t, err)

		assert.Equal(t, cursor, o.OrderDate)
		assert.Equal(t, cursor.Add(30*24*time.Hour), o.RequiredDate)
		assert.Equal(t, cursor.Add(time.Minute), next)

		assert.False(t, o.ShippedDate.Before(shippedFrom))
		assert.False(t, o.ShippedDate.After(shippedTo))

		assert.GreaterOrEqual(t, o.CustomerID, 1)
		assert.LessOrEqual(t, o.CustomerID, testProfile.Customers)
		assert.GreaterOrEqual(t, o.EmployeeID, 1)
		assert.LessOrEqual(t, o.EmployeeID, testProfile.Employees)
		assert.GreaterOrEqual(t, o.ShipVia, 1)
		assert.LessOrEqual(t, o.ShipVia, 3)
		cursor = next
	}

	assert.Equal(t, FirstOrderDate.Add(time.Duration(testProfile.Orders)*time.Minute), cursor)
}

func TestOrderFailsWithoutCustomers(t *testing.T) {
	gen, err := NewDataGenerator(NewRandom(1), config.Profile{Orders: 1, Employees: 1}, NewRegistry())
	require.NoError(t, err)

	_, _, err = gen.Order(1, FirstOrderDate)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestProductPriceAndSupplier(t *testing.T) {
	gen, reg := newTestGenerator(t, 4)

	for id := 1; id <= 500; id++ {
		p, err := gen.Product(id)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, p.SupplierID, 1)
		assert.LessOrEqual(t, p.SupplierID, testProfile.Suppliers)

		cents := int64(p.UnitPrice) % 100
		whole := int64(p.UnitPrice) / 100
		assert.True(t, cents == 0 || (cents >= 5 && cents <= 99), "fraction %d", cents)
		assert.GreaterOrEqual(t, whole, int64(3))
		assert.LessOrEqual(t, whole, int64(300))

		registered, err := reg.ProductPrice(id)
		require.NoError(t, err)
		assert.Equal(t, p.UnitPrice, registered)
	}
}

func TestOrderDetailsInvariants(t *testing.T) {
	gen, reg := newTestGenerator(t, 5)
	for id := 1; id <= testProfile.Products; id++ {
		_, err := gen.Product(id)
		require.NoError(t, err)
	}

	for orderID := 1; orderID <= testProfile.Orders; orderID++ {
		details, err := gen.OrderDetails(orderID)
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(details), 1)
		require.LessOrEqual(t, len(details), 25)

		for _, d := range details {
			assert.Equal(t, orderID, d.OrderID)
			assert.GreaterOrEqual(t, d.ProductID, 1)
			assert.LessOrEqual(t, d.ProductID, testProfile.Products)
			assert.Greater(t, d.Quantity, 0)
			assert.LessOrEqual(t, d.Quantity, 130)
			if d.Discount != 0 {
				assert.Contains(t, discounts, d.Discount)
			}

			price, err := reg.ProductPrice(d.ProductID)
			require.NoError(t, err)
			assert.Equal(t, price, d.UnitPrice)
		}
	}
}

func TestOrderDetailsWithoutProducts(t *testing.T) {
	gen, _ := newTestGenerator(t, 6)

	_, err := gen.OrderDetails(1)
	assert.ErrorIs(t, err, ErrRegistryPrecondition)
}

func TestShipperNeedsCompanyNames(t *testing.T) {
	gen, reg := newTestGenerator(t, 7)

	_, err := gen.Shipper(1)
	assert.ErrorIs(t, err, ErrRegistryPrecondition)

	c := gen.Customer(1)
	s, err := gen.Shipper(1)
	require.NoError(t, err)
	assert.Equal(t, 1, s.ID)
	assert.Equal(t, c.CompanyName, s.CompanyName)
	assert.Equal(t, 1, reg.CompanyNameCount())
}

func TestFakerStreamIsIndependentOfRandom(t *testing.T) {
	gen, _ := newTestGenerator(t, 1234)
	same := gofakeit.New(1234)

	differs := false
	for i := 0; i < 5; i++ {
		if gen.fake.Int64() != same.Int64() {
			differs = true
		}
	}
	assert.True(t, differs, "faker must not replay the primitive stream")
}

func TestGeneratorsAreReproducible(t *testing.T) {
	a, _ := newTestGenerator(t, 1234)
	b, _ := newTestGenerator(t, 1234)

	for id := 1; id <= 20; id++ {
		assert.Equal(t, a.Customer(id), b.Customer(id))
	}

	cursor := FirstOrderDate
	for id := 1; id <= 20; id++ {
		oa, nextA, err := a.Order(id, cursor)
		require.NoError(t, err)
		ob, nextB, err := b.Order(id, cursor)
		require.NoError(t, err)

		assert.Equal(t, oa.CustomerID, ob.CustomerID)
		assert.Equal(t, oa.EmployeeID, ob.EmployeeID)
		assert.Equal(t, oa, ob)
		assert.Equal(t, nextA, nextB)
		cursor = nextA
	}
}
