package backend

import (
	"regexp"
	"strings"
)

var (
	hostnamePattern    = regexp.MustCompile(`^(?i)[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?(\.[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?)+$`)
	projectIDPattern   = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,28}[a-z0-9])?$`)
	bucketPattern      = regexp.MustCompile(`^[a-z0-9]([a-z0-9._-]{0,220}[a-z0-9])?$`)
	senderIDPattern    = regexp.MustCompile(`^[0-9]{1,20}$`)
	appIDPattern       = regexp.MustCompile(`^[0-9]+:([0-9]+):(web|android|ios):[0-9a-f]+$`)
	measurementPattern = regexp.MustCompile(`^G-[A-Z0-9]{1,20}$`)
)

// CheckOptions applies the backend's identifier rules to cfg and returns the
// first violation as an *OptionError. Emptiness is not checked here.
func CheckOptions(cfg Config) error {
	if strings.ContainsAny(cfg.APIKey, " \t\r\n") {
		return &OptionError{Field: FieldAPIKey, Reason: "must not contain whitespace"}
	}
	if !hostnamePattern.MatchString(cfg.AuthDomain) {
		return &OptionError{Field: FieldAuthDomain, Reason: "must be a fully qualified host name"}
	}
	if !projectIDPattern.MatchString(cfg.ProjectID) {
		return &OptionError{Field: FieldProjectID, Reason: "must be 1-30 lowercase letters, digits or hyphens"}
	}
	if !bucketPattern.MatchString(strings.TrimPrefix(cfg.StorageBucket, "gs://")) {
		return &OptionError{Field: FieldStorageBucket, Reason: "must be a valid bucket name"}
	}
	if !senderIDPattern.MatchString(cfg.MessagingSenderID) {
		return &OptionError{Field: FieldMessagingSenderID, Reason: "must be numeric"}
	}

	m := appIDPattern.FindStringSubmatch(cfg.AppID)
	if m == nil {
		return &OptionError{Field: FieldAppID, Reason: "must look like <version>:<sender>:<platform>:<hash>"}
	}
	if m[1] != cfg.MessagingSenderID {
		return &OptionError{Field: FieldAppID, Reason: "sender segment does not match " + FieldMessagingSenderID}
	}

	if !measurementPattern.MatchString(cfg.MeasurementID) {
		return &OptionError{Field: FieldMeasurementID, Reason: "must look like G-XXXXXXX"}
	}
	return nil
}

// Platform returns the platform segment of the app ID ("web", "android" or
// "ios"), or "" when the ID is malformed.
func (c Config) Platform() string {
	m := appIDPattern.FindStringSubmatch(c.AppID)
	if m == nil {
		return ""
	}
	return m[2]
}
