package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Env var names for the two secrets the tool needs. Secrets never live in the
// job file.
const (
	EnvBindPassword = "ADENRICH_BIND_PASSWORD"
	EnvSMTPPassword = "ADENRICH_SMTP_PASSWORD"
)

// MatchRule pairs one spreadsheet column with the directory attribute its
// value is compared against when building the lookup filter.
type MatchRule struct {
	Column    string `yaml:"column"`
	Attribute string `yaml:"attribute"`
}

// Directory is the connection configuration for the directory service.
type Directory struct {
	// URL is an ldap:// or ldaps:// endpoint.
	URL      string `yaml:"url"`
	BaseDN   string `yaml:"base_dn"`
	BindDN   string `yaml:"bind_dn"`
	StartTLS bool   `yaml:"start_tls"`

	// RateLimitRPS is a global limit on lookups per second. Set to <=0 to disable.
	RateLimitRPS float64 `yaml:"rate_limit_rps"`

	// BindPassword comes from ADENRICH_BIND_PASSWORD, never from the file.
	BindPassword string `yaml:"-"`
}

// SMTP is the mail submission configuration.
type SMTP struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	From     string `yaml:"from"`
	Username string `yaml:"username"`
	StartTLS bool   `yaml:"start_tls"`

	// Password comes from ADENRICH_SMTP_PASSWORD, never from the file.
	Password string `yaml:"-"`
}

// Job is one enrichment job: which spreadsheet to read, how to match rows to
// directory entries, which attributes to attach, and who gets the result.
type Job struct {
	Name       string      `yaml:"name"`
	ExcelFile  string      `yaml:"excel_file"`
	Match      []MatchRule `yaml:"match"`
	Attributes []string    `yaml:"attributes"`
	MailTo     []string    `yaml:"mail_to"`
	LogFolder  string      `yaml:"log_folder"`
	Admins     []string    `yaml:"admins"`

	Directory Directory `yaml:"directory"`
	SMTP      SMTP      `yaml:"smtp"`
}

// Load reads and validates a job file.
func Load(path string) (*Job, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job file: %w", err)
	}
	return Parse(b)
}

// Parse decodes a job file, applies env-provided secrets and defaults, and
// validates the result.
func Parse(b []byte) (*Job, error) {
	var job Job
	if err := yaml.Unmarshal(b, &job); err != nil {
		return nil, fmt.Errorf("parse job file YAML: %w", err)
	}
	job.applyEnv()
	job.applyDefaults()
	if err := job.Validate(); err != nil {
		return nil, err
	}
	return &job, nil
}

func (j *Job) applyEnv() {
	if v := os.Getenv(EnvBindPassword); v != "" {
		j.Directory.BindPassword = v
	}
	if v := os.Getenv(EnvSMTPPassword); v != "" {
		j.SMTP.Password = v
	}
}

func (j *Job) applyDefaults() {
	if strings.TrimSpace(j.LogFolder) == "" {
		j.LogFolder = "."
	}
	if j.SMTP.Port == 0 {
		j.SMTP.Port = 25
	}
}

// Validate checks the job for the fields every run requires.
func (j *Job) Validate() error {
	if strings.TrimSpace(j.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(j.ExcelFile) == "" {
		return fmt.Errorf("excel_file is required")
	}
	if len(j.Match) == 0 {
		return fmt.Errorf("match needs at least one column/attribute pair")
	}
	seenCols := make(map[string]struct{}, len(j.Match))
	for i, rule := range j.Match {
		col := strings.TrimSpace(rule.Column)
		if col == "" {
			return fmt.Errorf("match[%d]: column is required", i)
		}
		if strings.TrimSpace(rule.Attribute) == "" {
			return fmt.Errorf("match[%d]: attribute is required", i)
		}
		if _, dup := seenCols[col]; dup {
			return fmt.Errorf("match[%d]: duplicate column %q", i, col)
		}
		seenCols[col] = struct{}{}
	}
	if len(j.Attributes) == 0 {
		return fmt.Errorf("attributes needs at least one directory attribute")
	}
	seenAttrs := make(map[string]struct{}, len(j.Attributes))
	for i, attr := range j.Attributes {
		a := strings.ToLower(strings.TrimSpace(attr))
		if a == "" {
			return fmt.Errorf("attributes[%d]: empty attribute name", i)
		}
		if _, dup := seenAttrs[a]; dup {
			return fmt.Errorf("attributes[%d]: duplicate attribute %q", i, attr)
		}
		seenAttrs[a] = struct{}{}
	}
	if len(j.MailTo) == 0 {
		return fmt.Errorf("mail_to needs at least one recipient")
	}
	for i, addr := range j.MailTo {
		if strings.TrimSpace(addr) == "" {
			return fmt.Errorf("mail_to[%d]: empty address", i)
		}
	}
	if strings.TrimSpace(j.Directory.URL) == "" {
		return fmt.Errorf("directory.url is required")
	}
	if strings.TrimSpace(j.Directory.BaseDN) == "" {
		return fmt.Errorf("directory.base_dn is required")
	}
	if strings.TrimSpace(j.SMTP.Host) == "" {
		return fmt.Errorf("smtp.host is required")
	}
	if j.SMTP.Port <= 0 || j.SMTP.Port > 65535 {
		return fmt.Errorf("smtp.port %d out of range", j.SMTP.Port)
	}
	if strings.TrimSpace(j.SMTP.From) == "" {
		return fmt.Errorf("smtp.from is required")
	}
	return nil
}
