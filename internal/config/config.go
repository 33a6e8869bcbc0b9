package config

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	BaseURL     string `env:"BASE_URL"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:"gateway.db"`

	Braintree Braintree `envPrefix:"BRAINTREE_"`
	Paypal    Paypal    `envPrefix:"PAYPAL_"`
	Square    Square    `envPrefix:"SQUARE_"`
	Coinbase  Coinbase  `envPrefix:"COINBASE_"`

	Routing Routing `envPrefix:"ROUTING_"`
	Portal  Portal  `envPrefix:"PORTAL_"`
}

type Braintree struct {
	Environment string `env:"ENVIRONMENT" envDefault:"sandbox"`
	MerchantID  string `env:"MERCHANT_ID"`
	PublicKey   string `env:"PUBLIC_KEY"`
	PrivateKey  string `env:"PRIVATE_KEY"`
}

type Paypal struct {
	BaseApiURL   string `env:"BASE_API_URL" envDefault:"https://api-m.sandbox.paypal.com"`
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
}

type Square struct {
	BaseApiURL  string `env:"BASE_API_URL" envDefault:"https://connect.squareupsandbox.com"`
	AccessToken string `env:"ACCESS_TOKEN"`
	LocationID  string `env:"LOCATION_ID"`
}

type Coinbase struct {
	BaseApiURL string `env:"BASE_API_URL" envDefault:"https://api.commerce.coinbase.com"`
	APIKey     string `env:"API_KEY"`
}

// Routing holds the preferred-provider slots and the fallback chain.
type Routing struct {
	Default       string   `env:"DEFAULT_PROVIDER" envDefault:"braintree"`
	Crypto        string   `env:"CRYPTO_PROVIDER" envDefault:"coinbase"`
	International string   `env:"INTERNATIONAL_PROVIDER" envDefault:"paypal"`
	InPerson      string   `env:"IN_PERSON_PROVIDER" envDefault:"square"`
	POS           string   `env:"POS_PROVIDER" envDefault:"square"`
	FallbackChain []string `env:"FALLBACK_CHAIN" envSeparator:"," envDefault:"braintree,paypal,square"`
}

// Portal configures dashboard-to-gateway auth for key and webhook management.
type Portal struct {
	JWTSecret string `env:"JWT_SECRET"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}
