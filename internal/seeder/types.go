package seeder

import (
	"fmt"
	"time"
)

// EntityType names one generated table.
type EntityType string

const (
	Customers    EntityType = "customers"
	Employees    EntityType = "employees"
	Orders       EntityType = "orders"
	Suppliers    EntityType = "suppliers"
	Products     EntityType = "products"
	OrderDetails EntityType = "order_details"
	Shippers     EntityType = "shippers"
)

// SeedOrder is the fixed phase order of a run.
var SeedOrder = []EntityType{Customers, Employees, Orders, Suppliers, Products, OrderDetails, Shippers}

func (e EntityType) Table() string {
	return string(e)
}

// Record is one generated row ready for a bulk insert.
type Record interface {
	Entity() EntityType
	Columns() []string
	Values() []interface{}
}

// Price is a money amount in cents.
type Price int64

func NewPrice(whole, cents int) Price {
	return Price(whole*100 + cents)
}

func (p Price) Float64() float64 {
	return float64(p) / 100
}

func (p Price) String() string {
	return fmt.Sprintf("%d.%02d", int64(p)/100, int64(p)%100)
}

// TimestampLayout is how order and shipping dates are stored.
const TimestampLayout = "2006-01-02 15:04:05.000"

type Customer struct {
	ID           int
	CompanyName  string
	ContactName  string
	ContactTitle string
	Address      string
	City         string
	PostalCode   *string
	Region       string
	Country      string
	Phone        string
	Fax          string
}

var customerColumns = []string{
	"id", "company_name", "contact_name", "contact_title", "address", "city",
	"postal_code", "region", "country", "phone", "fax",
}

func (Customer) Entity() EntityType { return Customers }
func (Customer) Columns() []string  { return customerColumns }

func (c Customer) Values() []interface{} {
	return []interface{}{
		c.ID, c.CompanyName, c.ContactName, c.ContactTitle, c.Address, c.City,
		nullString(c.PostalCode), c.Region, c.Country, c.Phone, c.Fax,
	}
}

type Employee struct {
	ID              int
	LastName        string
	FirstName       string
	Title           string
	TitleOfCourtesy string
	Address         string
	City            string
	PostalCode      string
	Country         string
	HomePhone       string
	Extension       int
	Notes           string
	RecipientID     *int
}

var employeeColumns = []string{
	"id", "last_name", "first_name", "title", "title_of_courtesy", "address", "city",
	"postal_code", "country", "home_phone", "extension", "notes", "recipient_id",
}

func (Employee) Entity() EntityType { return Employees }
func (Employee) Columns() []string  { return employeeColumns }

func (e Employee) Values() []interface{} {
	return []interface{}{
		e.ID, e.LastName, e.FirstName, e.Title, e.TitleOfCourtesy, e.Address, e.City,
		e.PostalCode, e.Country, e.HomePhone, e.Extension, e.Notes, nullInt(e.RecipientID),
	}
}

type Order struct {
	ID             int
	OrderDate      time.Time
	RequiredDate   time.Time
	ShippedDate    time.Time
	ShipVia        int
	Freight        Price
	ShipName       string
	ShipCity       string
	ShipRegion     string
	ShipPostalCode string
	ShipCountry    string
	CustomerID     int
	EmployeeID     int
}

var orderColumns = []string{
	"id", "order_date", "required_date", "shipped_date", "ship_via", "freight", "ship_name",
	"ship_city", "ship_region", "ship_postal_code", "ship_country", "customer_id", "employee_id",
}

func (Order) Entity() EntityType { return Orders }
func (Order) Columns() []string  { return orderColumns }

func (o Order) Values() []interface{} {
	return []interface{}{
		o.ID,
		o.OrderDate.Format(TimestampLayout),
		o.RequiredDate.Format(TimestampLayout),
		o.ShippedDate.Format(TimestampLayout),
		o.ShipVia, o.Freight.Float64(), o.ShipName, o.ShipCity, o.ShipRegion,
		o.ShipPostalCode, o.ShipCountry, o.CustomerID, o.EmployeeID,
	}
}

type Supplier struct {
	ID           int
	CompanyName  string
	ContactName  string
	ContactTitle string
	Address      string
	City         string
	Region       string
	PostalCode   string
	Country      string
	Phone        string
}

var supplierColumns = []string{
	"id", "company_name", "contact_name", "contact_title", "address", "city",
	"region", "postal_code", "country", "phone",
}

func (Supplier) Entity() EntityType { return Suppliers }
func (Supplier) Columns() []string  { return supplierColumns }

func (s Supplier) Values() []interface{} {
	return []interface{}{
		s.ID, s.CompanyName, s.ContactName, s.ContactTitle, s.Address, s.City,
		s.Region, s.PostalCode, s.Country, s.Phone,
	}
}

type Product struct {
	ID              int
	Name            string
	QuantityPerUnit string
	UnitPrice       Price
	UnitsInStock    int
	UnitsOnOrder    int
	ReorderLevel    int
	Discontinued    int
	SupplierID      int
}

var productColumns = []string{
	"id", "name", "qt_per_unit", "unit_price", "units_in_stock", "units_on_order",
	"reorder_level", "discontinued", "supplier_id",
}

func (Product) Entity() EntityType { return Products }
func (Product) Columns() []string  { return productColumns }

func (p Product) Values() []interface{} {
	return []interface{}{
		p.ID, p.Name, p.QuantityPerUnit, p.UnitPrice.Float64(), p.UnitsInStock, p.UnitsOnOrder,
		p.ReorderLevel, p.Discontinued, p.SupplierID,
	}
}

type OrderDetail struct {
	UnitPrice Price
	Quantity  int
	Discount  float64
	OrderID   int
	ProductID int
}

var orderDetailColumns = []string{"unit_price", "quantity", "discount", "order_id", "product_id"}

func (OrderDetail) Entity() EntityType { return OrderDetails }
func (OrderDetail) Columns() []string  { return orderDetailColumns }

func (d OrderDetail) Values() []interface{} {
	return []interface{}{d.UnitPrice.Float64(), d.Quantity, d.Discount, d.OrderID, d.ProductID}
}

type Shipper struct {
	ID          int
	CompanyName string
	Phone       string
}

var shipperColumns = []string{"id", "company_name", "phone"}

func (Shipper) Entity() EntityType { return Shippers }
func (Shipper) Columns() []string  { return shipperColumns }

func (s Shipper) Values() []interface{} {
	return []interface{}{s.ID, s.CompanyName, s.Phone}
}

func nullString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func nullInt(n *int) interface{} {
	if n == nil {
		return nil
	}
	return *n
}
