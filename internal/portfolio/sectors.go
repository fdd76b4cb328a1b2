package portfolio

import "github.com/wonny/aegis/pit/internal/contracts"

// StaticSectors is a fixed instrument → sector table
type StaticSectors map[string]string

// SectorOf returns the sector of id, or contracts.UnclassifiedSector
func (s StaticSectors) SectorOf(id string) string {
	if sector, ok := s[id]; ok && sector != "" {
		return sector
	}
	return contracts.UnclassifiedSector
}

// DefaultKOSPISectors maps large KOSPI constituents to sectors
// 코스피200 주요 종목 간이 섹터 매핑
func DefaultKOSPISectors() StaticSectors {
	return StaticSectors{
		"005930": "semiconductor", "000660": "semiconductor", "042700": "semiconductor", "009150": "semiconductor",
		"005380": "auto", "000270": "auto", "012330": "auto",
		"035420": "internet", "035720": "internet", "036570": "internet", "018260": "internet",
		"068270": "bio", "207940": "bio", "000100": "bio",
		"006400": "battery", "373220": "battery", "247540": "battery",
		"003550": "holding", "034730": "holding", "267250": "holding", "078930": "holding",
		"051910": "chemical", "011170": "chemical", "096770": "chemical", "010950": "chemical",
		"055550": "financial", "105560": "financial", "086790": "financial", "032830": "financial",
		"316140": "financial", "138040": "financial", "024110": "financial", "000810": "financial", "006800": "financial",
		"015760": "utility", "017670": "telecom", "030200": "telecom",
		"005490": "steel", "004020": "steel", "010130": "steel",
		"028260": "construction", "047050": "trading",
		"066570": "electronics", "003490": "airline", "011200": "shipping",
		"009540": "shipbuilding", "042660": "shipbuilding", "010140": "shipbuilding", "329180": "shipbuilding",
		"352820": "entertainment",
	}
}

// sectorOf resolves a sector with a nil-safe lookup
func sectorOf(lookup contracts.SectorLookup, id string) string {
	if lookup == nil {
		return contracts.UnclassifiedSector
	}
	if s := lookup.SectorOf(id); s != "" {
		return s
	}
	return contracts.UnclassifiedSector
}
