package registry

// CriticalTLDs is the fallback configuration for high-traffic TLDs. It
// is applied on top of whatever the IANA bootstrap yields, so these
// TLDs stay queryable even when the bootstrap fetch fails or an
// upstream revision drops their servers. Data, not code: callers may
// pass their own overlay via Options.
func CriticalTLDs() []TLDConfig {
	return []TLDConfig{
		{TLD: "com", RDAPServers: []string{"https://rdap.verisign.com/com/v1/"}, WhoisServer: "whois.verisign-grs.com", AvailablePattern: "No match for", Enabled: true},
		{TLD: "net", RDAPServers: []string{"https://rdap.verisign.com/net/v1/"}, WhoisServer: "whois.verisign-grs.com", AvailablePattern: "No match for", Enabled: true},
		{TLD: "org", RDAPServers: []string{"https://rdap.publicinterestregistry.org/rdap/"}, WhoisServer: "whois.publicinterestregistry.org", AvailablePattern: "NOT FOUND", Enabled: true},
		{TLD: "io", RDAPServers: []string{"https://rdap.identitydigital.services/rdap/"}, WhoisServer: "whois.nic.io", AvailablePattern: "NOT FOUND", Enabled: true},
		{TLD: "app", RDAPServers: []string{"https://pubapi.registry.google/rdap/"}, WhoisServer: "whois.nic.google", AvailablePattern: "Domain not found", Enabled: true},
		{TLD: "dev", RDAPServers: []string{"https://pubapi.registry.google/rdap/"}, WhoisServer: "whois.nic.google", AvailablePattern: "Domain not found", Enabled: true},
		{TLD: "ai", RDAPServers: []string{"https://rdap.nic.ai/"}, WhoisServer: "whois.nic.ai", AvailablePattern: "No Object Found", Enabled: true},
		{TLD: "co", RDAPServers: []string{"https://rdap.nic.co/"}, WhoisServer: "whois.nic.co", AvailablePattern: "No Data Found", Enabled: true},
		{TLD: "me", RDAPServers: []string{"https://rdap.nic.me/"}, WhoisServer: "whois.nic.me", AvailablePattern: "NOT FOUND", Enabled: true},
		{TLD: "xyz", RDAPServers: []string{"https://rdap.centralnic.com/xyz/"}, WhoisServer: "whois.nic.xyz", AvailablePattern: "DOMAIN NOT FOUND", Enabled: true},
		{TLD: "tech", RDAPServers: []string{"https://rdap.centralnic.com/tech/"}, WhoisServer: "whois.nic.tech", AvailablePattern: "DOMAIN NOT FOUND", Enabled: true},
		{TLD: "site", RDAPServers: []string{"https://rdap.centralnic.com/site/"}, WhoisServer: "whois.nic.site", AvailablePattern: "DOMAIN NOT FOUND", Enabled: true},
		{TLD: "online", RDAPServers: []string{"https://rdap.centralnic.com/online/"}, WhoisServer: "whois.nic.online", AvailablePattern: "DOMAIN NOT FOUND", Enabled: true},
		{TLD: "store", RDAPServers: []string{"https://rdap.centralnic.com/store/"}, WhoisServer: "whois.nic.store", AvailablePattern: "DOMAIN NOT FOUND", Enabled: true},
		{TLD: "shop", RDAPServers: []string{"https://rdap.nic.shop/"}, WhoisServer: "whois.nic.shop", AvailablePattern: "DOMAIN NOT FOUND", Enabled: true},
	}
}
