package directory

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// Config holds what Dial needs to reach and authenticate against an LDAP
// directory.
type Config struct {
	// URL is an ldap:// or ldaps:// endpoint.
	URL    string
	BaseDN string

	// BindDN and BindPassword authenticate the service account. Leave BindDN
	// empty for an anonymous bind.
	BindDN       string
	BindPassword string

	// StartTLS upgrades an ldap:// connection before binding.
	StartTLS bool
}

// LDAPClient implements Client over one LDAP connection. Lookups search the
// whole subtree under BaseDN; DN resolution reads the base object only.
type LDAPClient struct {
	conn   *ldap.Conn
	baseDN string
}

var _ Client = (*LDAPClient)(nil)

// Dial connects, optionally upgrades to TLS, and binds.
func Dial(cfg Config) (*LDAPClient, error) {
	addr := strings.TrimSpace(cfg.URL)
	if addr == "" {
		return nil, &OpError{Op: "dial", Err: fmt.Errorf("directory URL is required")}
	}

	conn, err := ldap.DialURL(addr)
	if err != nil {
		return nil, &OpError{Op: "dial", Detail: addr, Err: err}
	}

	if cfg.StartTLS {
		host := hostFromURL(addr)
		if err := conn.StartTLS(&tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}); err != nil {
			_ = conn.Close()
			return nil, &OpError{Op: "starttls", Detail: addr, Err: err}
		}
	}

	bindDN := strings.TrimSpace(cfg.BindDN)
	if bindDN != "" {
		err = conn.Bind(bindDN, cfg.BindPassword)
	} else {
		err = conn.UnauthenticatedBind("")
	}
	if err != nil {
		_ = conn.Close()
		return nil, &OpError{Op: "bind", Detail: bindDN, Err: err}
	}

	return &LDAPClient{conn: conn, baseDN: strings.TrimSpace(cfg.BaseDN)}, nil
}

// Search runs one subtree search under the base DN.
func (c *LDAPClient) Search(ctx context.Context, f Filter, attrs []string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rendered := f.String()
	if rendered == "" {
		return nil, &OpError{Op: "search", Err: fmt.Errorf("empty filter")}
	}

	req := ldap.NewSearchRequest(
		c.baseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0, 0, false,
		rendered,
		attrs,
		nil,
	)
	res, err := c.conn.Search(req)
	if err != nil {
		return nil, &OpError{Op: "search", Detail: rendered, Err: err}
	}
	return fromLDAPEntries(res.Entries), nil
}

// ResolveDN reads the entry at dn. A DN that no longer exists is reported as
// absent, not as an error.
func (c *LDAPClient) ResolveDN(ctx context.Context, dn string, attrs []string) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dn = strings.TrimSpace(dn)
	if dn == "" {
		return nil, nil
	}

	req := ldap.NewSearchRequest(
		dn,
		ldap.ScopeBaseObject,
		ldap.NeverDerefAliases,
		1, 0, false,
		"(objectClass=*)",
		attrs,
		nil,
	)
	res, err := c.conn.Search(req)
	if err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject) {
			return nil, nil
		}
		return nil, &OpError{Op: "resolve", Detail: dn, Err: err}
	}
	if len(res.Entries) == 0 {
		return nil, nil
	}
	entry := fromLDAPEntry(res.Entries[0])
	return &entry, nil
}

func (c *LDAPClient) Close() error {
	return c.conn.Close()
}

func fromLDAPEntries(in []*ldap.Entry) []Entry {
	out := make([]Entry, 0, len(in))
	for _, e := range in {
		out = append(out, fromLDAPEntry(e))
	}
	return out
}

func fromLDAPEntry(e *ldap.Entry) Entry {
	attrs := make(map[string][]string, len(e.Attributes))
	for _, a := range e.Attributes {
		attrs[a.Name] = a.Values
	}
	return NewEntry(e.DN, attrs)
}

// hostFromURL extracts the hostname for TLS server name verification. addr
// was already accepted by DialURL, so parse failures are not reachable.
func hostFromURL(addr string) string {
	u, err := url.Parse(addr)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
