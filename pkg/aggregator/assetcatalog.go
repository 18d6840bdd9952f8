package aggregator

import (
	"encoding/json"
	"net"
	"os"

	"github.com/socrates-project/socrates/pkg/models"
)

type assetRow struct {
	IP          string   `json:"ip"`
	CIDR        string   `json:"cidr"`
	Criticality *float64 `json:"criticality"`
	Exposure    *float64 `json:"exposure"`
	Sensitive   bool     `json:"sensitive"`
}

type assetFile struct {
	Assets []assetRow `json:"assets"`
}

// AssetCatalog resolves a destination IP to its criticality/exposure/
// sensitivity profile: exact IP match first, then first matching CIDR,
// then a private-vs-public default.
type AssetCatalog struct {
	entries []assetRow
}

// LoadAssetCatalog reads the static asset table from a JSON file (either
// {"assets": [...]} or a bare array). A missing file yields an empty
// catalog — every IP resolves to the default profile.
func LoadAssetCatalog(path string) (*AssetCatalog, error) {
	if path == "" {
		return &AssetCatalog{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &AssetCatalog{}, nil
		}
		return nil, err
	}

	var rows []assetRow
	var asObject assetFile
	if err := json.Unmarshal(data, &asObject); err == nil && asObject.Assets != nil {
		rows = asObject.Assets
	} else if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	return &AssetCatalog{entries: rows}, nil
}

// Resolve looks up the asset profile for ipText.
func (c *AssetCatalog) Resolve(ipText string) models.AssetProfile {
	ip := net.ParseIP(ipText)
	if ip == nil {
		return defaultProfile()
	}

	var direct, cidrMatch *assetRow
	for i := range c.entries {
		row := &c.entries[i]
		if row.IP != "" && row.IP == ipText {
			direct = row
			break
		}
		if row.CIDR != "" && cidrMatch == nil {
			if _, network, err := net.ParseCIDR(row.CIDR); err == nil && network.Contains(ip) {
				cidrMatch = row
			}
		}
	}

	matched := direct
	if matched == nil {
		matched = cidrMatch
	}
	if matched == nil {
		return defaultAsymmetricProfile(ip)
	}
	return models.AssetProfile{
		Criticality: clamp01Ptr(matched.Criticality, 0.4),
		Exposure:    clamp01Ptr(matched.Exposure, 0.3),
		Sensitive:   matched.Sensitive,
	}
}

func defaultProfile() models.AssetProfile {
	return models.AssetProfile{Criticality: 0.4, Exposure: 0.3, Sensitive: false}
}

func defaultAsymmetricProfile(ip net.IP) models.AssetProfile {
	if ip.IsPrivate() {
		return models.AssetProfile{Criticality: 0.45, Exposure: 0.2, Sensitive: false}
	}
	return models.AssetProfile{Criticality: 0.5, Exposure: 0.7, Sensitive: false}
}

func clamp01Ptr(v *float64, def float64) float64 {
	if v == nil {
		return models.Clamp01(def)
	}
	return models.Clamp01(*v)
}
