package detector

import (
	"fmt"
	"time"
)

// DetectActivityDips 检测活动低谷：windowMinutes 宽度的滚动窗口内
// 步数合计 < stepsThreshold。
// 数据点先按分钟取整聚合，再在 [start, end] 上构建完整分钟时间线，
// 缺失分钟补零——上报缺口按无活动处理，这是有意的保守策略。
// 滚动和为 O(n)（加新减旧）。end 早于 start 或时间线短于窗口时返回空。
func DetectActivityDips(points []ActivityPoint, start, end time.Time, windowMinutes int, stepsThreshold int) []DipInterval {
	if len(points) == 0 || windowMinutes <= 0 {
		return []DipInterval{}
	}

	// 按分钟取整聚合（统一 UTC，避免时区差异拆分同一分钟）
	buckets := make(map[time.Time]int)
	for _, p := range points {
		tMin := p.T.UTC().Truncate(time.Minute)
		buckets[tMin] += int(p.Magnitude)
	}

	// [start, end] 的完整分钟时间线
	startMin := start.UTC().Truncate(time.Minute)
	endMin := end.UTC().Truncate(time.Minute)

	timeline := []time.Time{}
	for cur := startMin; !cur.After(endMin); cur = cur.Add(time.Minute) {
		timeline = append(timeline, cur)
	}

	values := make([]int, len(timeline))
	for i, t := range timeline {
		values[i] = buckets[t]
	}

	w := windowMinutes
	raw := []DipInterval{}
	rolling := 0
	for i := 0; i < w && i < len(values); i++ {
		rolling += values[i]
	}
	for i := w - 1; i < len(values); i++ {
		if i >= w {
			rolling += values[i] - values[i-w]
		}
		winEnd := timeline[i]
		winStart := winEnd.Add(-time.Duration(w) * time.Minute)
		if rolling < stepsThreshold {
			raw = append(raw, DipInterval{
				Start:  winStart,
				End:    winEnd,
				Steps:  rolling,
				Reason: fmt.Sprintf("steps_below_%d_per_%dm", stepsThreshold, w),
			})
		}
	}

	return mergeDips(raw)
}

// mergeDips 合并相邻/重叠低谷：next.start <= last.end + 1 分钟时吸收，
// end 取较晚者，steps 取最小值——保留合并跨度内最差的活动水平
// （与尖峰合并的取最大规则相反，两者方向不可互换）。
func mergeDips(dips []DipInterval) []DipInterval {
	merged := []DipInterval{}
	for _, d := range dips {
		if len(merged) == 0 {
			merged = append(merged, d)
			continue
		}
		last := &merged[len(merged)-1]
		if !d.Start.After(last.End.Add(time.Minute)) {
			if d.End.After(last.End) {
				last.End = d.End
			}
			if d.Steps < last.Steps {
				last.Steps = d.Steps
			}
		} else {
			merged = append(merged, d)
		}
	}
	return merged
}
