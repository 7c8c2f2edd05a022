package saleor

// APIError is a business error the remote API reports inside a successful
// transport response, distinct from a network or non-2xx failure.
type APIError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// User is the slice of the remote account object the storefront cares about.
type User struct {
	Email string `json:"email"`
}

// AccountRegisterResult is the accountRegister mutation payload. User is nil
// when the account was not created; Errors carries the remote reason.
type AccountRegisterResult struct {
	User   *User      `json:"user"`
	Errors []APIError `json:"errors"`
}

// TokenCreateResult is the tokenCreate mutation payload. Token is empty when
// the credentials were rejected.
type TokenCreateResult struct {
	Token  string     `json:"token"`
	User   *User      `json:"user"`
	Errors []APIError `json:"errors"`
}

// Product is the storefront's view of a catalog product, with the remote
// pricing shape already flattened.
type Product struct {
	ID                string  `json:"id"`
	Title             string  `json:"title"`
	Image             string  `json:"image"`
	Price             float64 `json:"price"`
	UndiscountedPrice float64 `json:"undiscounted_price"`
	Description       string  `json:"description,omitempty"`
}

// gross mirrors the money shape nested throughout Saleor pricing.
type gross struct {
	Amount float64 `json:"amount"`
}

type priced struct {
	Gross *gross `json:"gross"`
}

type variantPricing struct {
	Price             *priced `json:"price"`
	PriceUndiscounted *priced `json:"priceUndiscounted"`
}

type productNode struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Media       []struct {
		URL string `json:"url"`
	} `json:"media"`
	Pricing *struct {
		PriceRange *struct {
			Start *priced `json:"start"`
		} `json:"priceRange"`
	} `json:"pricing"`
	Variants []struct {
		Pricing *variantPricing `json:"pricing"`
	} `json:"variants"`
}

// placeholderImage is served for products without media, as the storefront
// pages expect a renderable image URL for every card.
const placeholderImage = "/file.svg"

// mapProduct flattens the remote node. Price falls back from the listing price
// range to the first variant's price, then its undiscounted price, then zero;
// the UI renders zero as "price not available".
func mapProduct(n productNode) Product {
	p := Product{
		ID:          n.ID,
		Title:       n.Name,
		Image:       placeholderImage,
		Description: n.Description,
	}
	if len(n.Media) > 0 && n.Media[0].URL != "" {
		p.Image = n.Media[0].URL
	}

	var variant *variantPricing
	if len(n.Variants) > 0 {
		variant = n.Variants[0].Pricing
	}

	switch {
	case n.Pricing != nil && n.Pricing.PriceRange != nil &&
		n.Pricing.PriceRange.Start != nil && n.Pricing.PriceRange.Start.Gross != nil:
		p.Price = n.Pricing.PriceRange.Start.Gross.Amount
	case variant != nil && variant.Price != nil && variant.Price.Gross != nil:
		p.Price = variant.Price.Gross.Amount
	case variant != nil && variant.PriceUndiscounted != nil && variant.PriceUndiscounted.Gross != nil:
		p.Price = variant.PriceUndiscounted.Gross.Amount
	}

	if variant != nil && variant.PriceUndiscounted != nil && variant.PriceUndiscounted.Gross != nil {
		p.UndiscountedPrice = variant.PriceUndiscounted.Gross.Amount
	}

	return p
}
