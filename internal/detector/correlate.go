package detector

import "time"

// CorrelationWindow 尖峰的相关性窗口宽度：[spike.start, spike.start+60m]。
// 与尖峰检测的 timeframe 是两个独立参数，默认值恰好相同。
const CorrelationWindow = 60 * time.Minute

// Correlate 将每个尖峰与其相关性窗口内首个重叠的低谷配对。
// 按时间顺序取首个命中（而非最优命中），每个尖峰至多产生一个事件；
// 同一低谷可被多个尖峰复用。重叠判定边界为闭区间：
// dip.end == spike.start 也算重叠。
// 快照中的血糖值在此处四舍五入到 1 位小数，时间统一转为 UTC。
func Correlate(spikes []SpikeInterval, dips []DipInterval) []CorrelationEvent {
	events := []CorrelationEvent{}
	for _, s := range spikes {
		sStart := s.Start.UTC()
		sEnd := s.End.UTC()
		windowEnd := sStart.Add(CorrelationWindow)

		for _, d := range dips {
			dStart := d.Start.UTC()
			dEnd := d.End.UTC()

			if !dEnd.Before(sStart) && !dStart.After(windowEnd) {
				events = append(events, CorrelationEvent{
					Spike: SpikeSnapshot{
						Start:        sStart,
						End:          sEnd,
						DeltaMgDl:    round1(s.DeltaMgDl),
						BaselineMgDl: round1(s.BaselineMgDl),
						PeakMgDl:     round1(s.PeakMgDl),
					},
					ActivityDip: DipSnapshot{
						Start:  dStart,
						End:    dEnd,
						Reason: d.Reason,
						Steps:  d.Steps,
					},
				})
				break
			}
		}
	}
	return events
}
