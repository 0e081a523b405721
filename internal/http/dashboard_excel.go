package httpapi

import (
	"fmt"
	"time"

	"vitalsense-data/internal/models"

	"github.com/xuri/excelize/v2"
)

// DashboardSamplesHeader 样本工作表表头
var DashboardSamplesHeader = []string{
	"Metric",
	"Timestamp",
	"Value",
	"Detail",
}

// DashboardCorrelationsHeader 相关性工作表表头
var DashboardCorrelationsHeader = []string{
	"Spike Start",
	"Spike End",
	"Baseline (mg/dL)",
	"Peak (mg/dL)",
	"Delta (mg/dL)",
	"Dip Start",
	"Dip End",
	"Dip Steps",
	"Dip Reason",
}

// GenerateDashboardExport 生成 24h 仪表盘的 xlsx 导出
// Samples 表逐行平铺六条序列，Correlations 表一行一个配对事件
func GenerateDashboardExport(dashboard *models.Dashboard24h) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo 之前不能 Close

	samplesSheet := "Samples"
	index, err := f.NewSheet(samplesSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	correlationsSheet := "Correlations"
	if _, err := f.NewSheet(correlationsSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeHeaderRow(f, samplesSheet, DashboardSamplesHeader, headerStyle); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeHeaderRow(f, correlationsSheet, DashboardCorrelationsHeader, headerStyle); err != nil {
		f.Close()
		return nil, err
	}

	if err := writeSampleRows(f, samplesSheet, dashboard); err != nil {
		f.Close()
		return nil, err
	}

	for i, event := range dashboard.Correlations {
		row := i + 2
		values := []interface{}{
			event.Spike.Start.UTC().Format(time.RFC3339),
			event.Spike.End.UTC().Format(time.RFC3339),
			event.Spike.BaselineMgDl,
			event.Spike.PeakMgDl,
			event.Spike.DeltaMgDl,
			event.ActivityDip.Start.UTC().Format(time.RFC3339),
			event.ActivityDip.End.UTC().Format(time.RFC3339),
			event.ActivityDip.Steps,
			event.ActivityDip.Reason,
		}
		if err := writeRow(f, correlationsSheet, row, values); err != nil {
			f.Close()
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write excel buffer: %w", err)
	}
	f.Close()

	return buf.Bytes(), nil
}

func writeHeaderRow(f *excelize.File, sheet string, headers []string, style int) error {
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("failed to set cell %s: %w", cell, err)
		}
	}
	return nil
}

// writeSampleRows 六条序列平铺为 Metric/Timestamp/Value/Detail 行
func writeSampleRows(f *excelize.File, sheet string, dashboard *models.Dashboard24h) error {
	row := 2

	appendRow := func(metric, t string, value interface{}, detail string) error {
		err := writeRow(f, sheet, row, []interface{}{metric, t, value, detail})
		row++
		return err
	}

	for _, p := range dashboard.Series.BloodGlucose {
		if err := appendRow("blood_glucose", p.T, p.MgDl, p.Source); err != nil {
			return err
		}
	}
	for _, p := range dashboard.Series.HeartRate {
		if err := appendRow("heart_rate", p.T, p.Bpm, ""); err != nil {
			return err
		}
	}
	for _, p := range dashboard.Series.BloodPressure {
		detail := fmt.Sprintf("%.0f/%.0f mmHg", p.SystolicMmhg, p.DiastolicMmhg)
		if err := appendRow("blood_pressure", p.T, p.SystolicMmhg, detail); err != nil {
			return err
		}
	}
	for _, p := range dashboard.Series.StepsPerMin {
		if err := appendRow("steps_per_min", p.T, p.Spm, ""); err != nil {
			return err
		}
	}
	for _, p := range dashboard.Series.ExerciseMinutes {
		if err := appendRow("exercise_minutes", p.T, p.Minutes, ""); err != nil {
			return err
		}
	}
	for _, p := range dashboard.Series.ECG {
		var value interface{}
		if p.AverageBpm != nil {
			value = *p.AverageBpm
		}
		if err := appendRow("ecg", p.T, value, p.Classification); err != nil {
			return err
		}
	}

	return nil
}
