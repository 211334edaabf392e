package scraper

import "strings"

// Categories are the SellOff Vacations listing pages swept by a full pass.
var Categories = []string{
	"luxury-vacations",
	"adults-only",
	"family-vacations",
	"budget-friendly-vacations",
	"top-rated-all-inclusive-resorts",
}

// GatewaySlugs maps departure IATA codes to the provider's city URL slugs.
var GatewaySlugs = map[string]string{
	"YXX": "abbotsford",
	"YVR": "vancouver",
	"YYJ": "victoria",
	"YLW": "kelowna",
	"YKA": "kamloops",
	"YXS": "prince-george",
	"YYC": "calgary",
	"YEG": "edmonton",
	"YMM": "fort-mcmurray",
	"YQU": "grande-prairie",
	"YQL": "lethbridge",
	"YQR": "regina",
	"YXE": "saskatoon",
	"YWG": "winnipeg",
	"YYZ": "toronto",
	"YHM": "hamilton",
	"YKF": "kitchener",
	"YXU": "london",
	"YQT": "thunder-bay",
	"YOW": "ottawa",
	"YQG": "windsor",
	"YUL": "montreal",
	"YQB": "quebec-city",
	"YBG": "bagotville",
	"YHZ": "halifax",
	"YDF": "deer-lake",
	"YQX": "gander",
	"YYT": "st-johns",
	"YQM": "moncton",
	"YFC": "fredericton",
	"YSJ": "saint-john",
	"YYG": "charlottetown",
	"YSB": "sudbury",
	"YAM": "sault-ste-marie",
	"YQQ": "comox",
	"YNB": "nanaimo",
}

// destinationRegionMap maps destination keywords to normalized region keys.
var destinationRegionMap = map[string]string{
	"mexico":             "mexico",
	"riviera maya":       "mexico",
	"cancun":             "mexico",
	"puerto vallarta":    "mexico",
	"los cabos":          "mexico",
	"mazatlan":           "mexico",
	"mazatlán":           "mexico",
	"huatulco":           "mexico",
	"ixtapa":             "mexico",
	"puerto escondido":   "mexico",
	"dominican republic": "dominican_republic",
	"punta cana":         "dominican_republic",
	"puerto plata":       "dominican_republic",
	"la romana":          "dominican_republic",
	"samana":             "dominican_republic",
	"samaná":             "dominican_republic",
	"cuba":               "cuba",
	"varadero":           "cuba",
	"holguin":            "cuba",
	"holguín":            "cuba",
	"havana":             "cuba",
	"cayo coco":          "cuba",
	"santa clara":        "cuba",
	"jamaica":            "jamaica",
	"montego bay":        "jamaica",
	"negril":             "jamaica",
	"ocho rios":          "jamaica",
	"aruba":              "caribbean",
	"barbados":           "caribbean",
	"curacao":            "caribbean",
	"curaçao":            "caribbean",
	"cayman islands":     "caribbean",
	"saint lucia":        "caribbean",
	"st. lucia":          "caribbean",
	"st maarten":         "caribbean",
	"st. maarten":        "caribbean",
	"turks and caicos":   "caribbean",
	"bahamas":            "caribbean",
	"nassau":             "caribbean",
	"costa rica":         "central_america",
	"liberia":            "central_america",
	"belize":             "central_america",
	"panama":             "central_america",
	"roatan":             "central_america",
	"roatán":             "central_america",
	"honduras":           "central_america",
}

// MapDestinationToRegion normalizes a raw destination string to a region
// key, or "" when no keyword matches.
func MapDestinationToRegion(destination string) string {
	destLower := strings.ToLower(destination)
	for keyword, region := range destinationRegionMap {
		if strings.Contains(destLower, keyword) {
			return region
		}
	}
	return ""
}
