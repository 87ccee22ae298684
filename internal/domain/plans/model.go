package plans

// Resources describes the sizing a tenant receives for a plan.
type Resources struct {
	DiskMB    int  `json:"disk_mb"`
	Mailboxes int  `json:"mailboxes"`
	Databases int  `json:"databases"`
	Domains   int  `json:"domains"`
	SSL       bool `json:"ssl"`
}

// Config is the static configuration for one hosting SKU. It drives the
// tenant-creation and service-provisioning payloads.
type Config struct {
	SKU         string    `json:"sku"`
	DisplayName string    `json:"display_name"`
	Resources   Resources `json:"resources"`
}
