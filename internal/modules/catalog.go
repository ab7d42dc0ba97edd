package modules

import (
	"github.com/irbid-geoai/geoai-monitor/internal/dataset"
	"github.com/irbid-geoai/geoai-monitor/internal/raster"
	"github.com/irbid-geoai/geoai-monitor/internal/region"
	"github.com/irbid-geoai/geoai-monitor/pkg/models"
)

// Collection ids of the datasets the modules read.
const (
	Sentinel2Collection    = "COPERNICUS/S2_SR_HARMONIZED"
	Landsat5Collection     = "LANDSAT/LT05/C02/T1_L2"
	DynamicWorldCollection = "GOOGLE/DYNAMICWORLD/V1"
	ERA5Collection         = "ECMWF/ERA5_LAND/MONTHLY"
	VIIRSCollection        = "NOAA/VIIRS/DNB/MONTHLY_V1/VCMSLCFG"
	Sentinel1Collection    = "COPERNICUS/S1_GRD"
)

// Band names read from the datasets.
const (
	LabelBand         = "label"
	PrecipitationBand = "total_precipitation"
	RadianceBand      = "avg_rad"
	VHBand            = "VH"
)

var (
	sentinel2Bands = []string{"B2", "B3", "B4", "B8", "B11"}
	landsat5Bands  = []string{"SR_B1", "SR_B2", "SR_B3", "SR_B4", "SR_B5"}
)

// sentinel2 is the 2024 median of near cloud-free Sentinel-2 scenes.
func sentinel2(r *region.Region) dataset.Request {
	return dataset.Request{
		CollectionID: Sentinel2Collection,
		Region:       r.Point(),
		Dates:        raster.Dates("2024-01-01", "2025-01-01"),
		Filters:      []raster.PropertyFilter{raster.Lt("CLOUDY_PIXEL_PERCENTAGE", 5)},
		Bands:        sentinel2Bands,
		Composite:    raster.CompositeMedian,
	}
}

// landsat5 is the least cloudy Landsat-5 scene of 1985 to 1987.
func landsat5(r *region.Region) dataset.Request {
	return dataset.Request{
		CollectionID: Landsat5Collection,
		Region:       r.Point(),
		Dates:        raster.Dates("1985-01-01", "1987-12-31"),
		Bands:        landsat5Bands,
		Composite:    raster.CompositeFirstAfterSort,
		SortBy:       "CLOUD_COVER",
	}
}

func dynamicWorld(r *region.Region) dataset.Request {
	return dataset.Request{
		CollectionID: DynamicWorldCollection,
		Region:       r.Point(),
		Dates:        raster.Dates("2024-01-01", "2024-12-31"),
		Bands:        []string{LabelBand},
		Composite:    raster.CompositeMosaic,
	}
}

// rainfall is the accumulated 2024 precipitation.
func rainfall(r *region.Region) dataset.Request {
	return dataset.Request{
		CollectionID: ERA5Collection,
		Region:       r.Extent(),
		Dates:        raster.Dates("2024-01-01", "2025-01-01"),
		Bands:        []string{PrecipitationBand},
		Composite:    raster.CompositeSum,
	}
}

// nightLights is the median 2024 night-time radiance.
func nightLights(r *region.Region) dataset.Request {
	return dataset.Request{
		CollectionID: VIIRSCollection,
		Region:       r.Extent(),
		Dates:        raster.Dates("2024-01-01", "2025-01-01"),
		Bands:        []string{RadianceBand},
		Composite:    raster.CompositeMedian,
	}
}

func sentinel1(r *region.Region) dataset.Request {
	return dataset.Request{
		CollectionID: Sentinel1Collection,
		Region:       r.Point(),
		Dates:        raster.Dates("2020-01-01", "2024-12-31"),
		Filters:      []raster.PropertyFilter{raster.Eq("instrumentMode", "IW")},
		Bands:        []string{VHBand},
		Composite:    raster.CompositeMedian,
	}
}

var (
	landsatTrueColor  = models.VisParams{Bands: []string{"SR_B3", "SR_B2", "SR_B1"}, Min: 7000, Max: 12000}
	sentinelTrueColor = models.VisParams{Bands: []string{"B4", "B3", "B2"}, Min: 0, Max: 3000}

	ndviChangeVis = models.VisParams{Min: -0.5, Max: 0.5, Palette: []string{"red", "white", "green"}}
	ndbiChangeVis = models.VisParams{Min: -0.5, Max: 0.5, Palette: []string{"green", "white", "red"}}

	growthVis = models.VisParams{Min: 0, Max: 1, Palette: []string{"green", "yellow", "red"}}
	sarVis    = models.VisParams{Min: -25, Max: -5, Palette: []string{"black", "white"}}
)

// landCover lists the Dynamic World classes by label value.
var landCover = []models.LegendEntry{
	{Label: "Water", Color: "#419BDF"},
	{Label: "Trees", Color: "#397D49"},
	{Label: "Grass", Color: "#88B053"},
	{Label: "Flooded Veg", Color: "#7A87C6"},
	{Label: "Crops", Color: "#E49635"},
	{Label: "Shrub", Color: "#DFC351"},
	{Label: "Urban", Color: "#C4281B"},
	{Label: "Bare Soil", Color: "#A59B8F"},
	{Label: "Snow/Ice", Color: "#B39FE1"},
}

func landCoverVis() models.VisParams {
	palette := make([]string, len(landCover))
	for i, e := range landCover {
		palette[i] = e.Color
	}
	return models.VisParams{Min: 0, Max: float64(len(landCover) - 1), Palette: palette}
}

func colorbar(label string, vis models.VisParams) models.Colorbar {
	return models.Colorbar{Label: label, Min: vis.Min, Max: vis.Max, Palette: vis.Palette}
}
