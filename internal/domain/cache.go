package domain

// Kind identifies one cacheable entity family. The names feed deterministic
// cache keys and Tag labels every entry for bulk invalidation.
type Kind struct {
	Singular string
	Plural   string
	Tag      string
}

var (
	KindCustomer = Kind{Singular: "Customer", Plural: "Customers", Tag: "CustomerCache"}
	KindUser     = Kind{Singular: "User", Plural: "Users", Tag: "UserCache"}
	KindProduct  = Kind{Singular: "Product", Plural: "Products", Tag: "productCache"}
)
