package backend

// Config is the configuration record addressing one backend project.
// Values are copied into every handle built from it, so mutating a Config
// after creating an App has no effect on that App.
type Config struct {
	APIKey            string `yaml:"api_key" validate:"required,notblank"`
	AuthDomain        string `yaml:"auth_domain" validate:"required,notblank"`
	ProjectID         string `yaml:"project_id" validate:"required,notblank"`
	StorageBucket     string `yaml:"storage_bucket" validate:"required,notblank"`
	MessagingSenderID string `yaml:"messaging_sender_id" validate:"required,notblank"`
	AppID             string `yaml:"app_id" validate:"required,notblank"`
	MeasurementID     string `yaml:"measurement_id" validate:"required,notblank"`
}

// Field names as they appear in config files and error messages.
const (
	FieldAPIKey            = "api_key"
	FieldAuthDomain        = "auth_domain"
	FieldProjectID         = "project_id"
	FieldStorageBucket     = "storage_bucket"
	FieldMessagingSenderID = "messaging_sender_id"
	FieldAppID             = "app_id"
	FieldMeasurementID     = "measurement_id"
)

// Field pairs a record field name with its value.
type Field struct {
	Name  string
	Value string
}

// Fields returns the record fields in declaration order.
func (c Config) Fields() []Field {
	return []Field{
		{Name: FieldAPIKey, Value: c.APIKey},
		{Name: FieldAuthDomain, Value: c.AuthDomain},
		{Name: FieldProjectID, Value: c.ProjectID},
		{Name: FieldStorageBucket, Value: c.StorageBucket},
		{Name: FieldMessagingSenderID, Value: c.MessagingSenderID},
		{Name: FieldAppID, Value: c.AppID},
		{Name: FieldMeasurementID, Value: c.MeasurementID},
	}
}

// Set assigns value to the named field. It reports false for unknown names.
func (c *Config) Set(name, value string) bool {
	switch name {
	case FieldAPIKey:
		c.APIKey = value
	case FieldAuthDomain:
		c.AuthDomain = value
	case FieldProjectID:
		c.ProjectID = value
	case FieldStorageBucket:
		c.StorageBucket = value
	case FieldMessagingSenderID:
		c.MessagingSenderID = value
	case FieldAppID:
		c.AppID = value
	case FieldMeasurementID:
		c.MeasurementID = value
	default:
		return false
	}
	return true
}

// Redacted returns a copy safe to log or print: the API key keeps only its
// first four characters.
func (c Config) Redacted() Config {
	out := c
	if len(out.APIKey) > 4 {
		out.APIKey = out.APIKey[:4] + "…"
	} else if out.APIKey != "" {
		out.APIKey = "…"
	}
	return out
}
