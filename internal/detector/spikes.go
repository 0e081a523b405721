package detector

import (
	"sort"
	"time"
)

// DetectGlucoseSpikes 检测血糖尖峰：timeframe 内上升 >= deltaThreshold。
// 输入顺序任意，内部先按时间排序（复制后排序，不改动调用方切片）。
// 扫描为 O(n^2)：以每个点为基线，向前扫描 timeframe 内的最大值；
// 24 小时低频血糖读数规模下足够，如需优化须保持首见峰值的平手规则。
func DetectGlucoseSpikes(points []GlucosePoint, deltaThreshold float64, timeframe time.Duration) []SpikeInterval {
	if len(points) < 2 {
		return []SpikeInterval{}
	}

	pts := make([]GlucosePoint, len(points))
	copy(pts, points)
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].T.Before(pts[j].T) })

	raw := []SpikeInterval{}
	for i := 0; i < len(pts)-1; i++ {
		base := pts[i]
		peak := base
		peakIdx := i
		for j := i + 1; j < len(pts); j++ {
			cur := pts[j]
			if cur.T.Sub(base.T) > timeframe {
				break
			}
			// 严格大于才更新峰值：相等时保留先出现的点
			if cur.MgDl > peak.MgDl {
				peak = cur
				peakIdx = j
			}
		}

		if peak.MgDl-base.MgDl >= deltaThreshold && peakIdx != i {
			raw = append(raw, SpikeInterval{
				Start:        base.T,
				End:          peak.T,
				BaselineMgDl: base.MgDl,
				PeakMgDl:     peak.MgDl,
				DeltaMgDl:    peak.MgDl - base.MgDl,
			})
		}
	}

	return mergeSpikes(raw)
}

// mergeSpikes 按时间顺序合并重叠尖峰：next.start <= last.end 时吸收，
// end 取较晚者，peak/delta 取最大值（与低谷合并的取最小规则相反）。
// baseline 保留最早区间的基线。
func mergeSpikes(spikes []SpikeInterval) []SpikeInterval {
	merged := []SpikeInterval{}
	for _, s := range spikes {
		if len(merged) == 0 {
			merged = append(merged, s)
			continue
		}
		last := &merged[len(merged)-1]
		if !s.Start.After(last.End) {
			if s.End.After(last.End) {
				last.End = s.End
			}
			if s.PeakMgDl > last.PeakMgDl {
				last.PeakMgDl = s.PeakMgDl
			}
			if s.DeltaMgDl > last.DeltaMgDl {
				last.DeltaMgDl = s.DeltaMgDl
			}
		} else {
			merged = append(merged, s)
		}
	}
	return merged
}
