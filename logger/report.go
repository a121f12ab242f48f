package logger

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

type flowStat struct {
	records int64
}

var (
	errorsLoad    int64
	errorsExport  int64
	warnsLoad     int64
	warnsExport   int64
	recordsLoaded int64
	recordsWrote  int64
	conversions   int64
	flows         sync.Map // map[string]*flowStat
)

func recordWarn(component string) {
	if strings.Contains(component, "loader") {
		atomic.AddInt64(&warnsLoad, 1)
	} else if strings.Contains(component, "exporter") {
		atomic.AddInt64(&warnsExport, 1)
	}
}

func recordError(component string) {
	if strings.Contains(component, "loader") {
		atomic.AddInt64(&errorsLoad, 1)
	} else if strings.Contains(component, "exporter") {
		atomic.AddInt64(&errorsExport, 1)
	}
}

// IncrementLoaded accounts records produced by a loader.
func IncrementLoaded(count int) {
	atomic.AddInt64(&recordsLoaded, int64(count))
	recordFlow("load", count)
}

// IncrementExported accounts records consumed by an exporter.
func IncrementExported(count int) {
	atomic.AddInt64(&recordsWrote, int64(count))
	recordFlow("export", count)
}

// IncrementConversions accounts completed convert calls.
func IncrementConversions() {
	atomic.AddInt64(&conversions, 1)
}

// RecordFlow accounts a named data flow for the periodic report.
func RecordFlow(name string, records int) {
	recordFlow(name, records)
}

func recordFlow(name string, records int) {
	v, _ := flows.LoadOrStore(name, &flowStat{})
	fs := v.(*flowStat)
	atomic.AddInt64(&fs.records, int64(records))
}

func startReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				logReport(ctx, log)
			}
		}
	}()
}

// StartReport begins periodic logging of system and pipeline statistics.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	startReport(ctx, log, interval)
}

func logReport(ctx context.Context, log *Log) {
	cpuPercent, _ := cpu.Percent(0, false)
	memStats, _ := mem.VirtualMemory()
	diskStats, _ := disk.Usage("/")

	flowData := map[string]int64{}
	flows.Range(func(k, v any) bool {
		flowData[k.(string)] = atomic.LoadInt64(&v.(*flowStat).records)
		return true
	})

	cpuPct := 0.0
	if len(cpuPercent) > 0 {
		cpuPct = cpuPercent[0]
	}

	fields := Fields{
		"errors_load":      atomic.LoadInt64(&errorsLoad),
		"errors_export":    atomic.LoadInt64(&errorsExport),
		"warns_load":       atomic.LoadInt64(&warnsLoad),
		"warns_export":     atomic.LoadInt64(&warnsExport),
		"records_loaded":   atomic.LoadInt64(&recordsLoaded),
		"records_exported": atomic.LoadInt64(&recordsWrote),
		"conversions":      atomic.LoadInt64(&conversions),
		"goroutines":       runtime.NumGoroutine(),
		"cpu_percent":      cpuPct,
		"memory_mb":        int64(memStats.Used) / 1024 / 1024,
		"disk_mb":          int64(diskStats.Used) / 1024 / 1024,
		"flows":            flowData,
	}

	log.WithComponent("report").WithFields(fields).Info("runtime report")

	var data []cwtypes.MetricDatum
	data = append(data,
		cwtypes.MetricDatum{MetricName: aws.String("CPUPercent"), Unit: cwtypes.StandardUnitPercent, Value: aws.Float64(cpuPct)},
		cwtypes.MetricDatum{MetricName: aws.String("MemoryMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(memStats.Used) / 1024 / 1024)},
		cwtypes.MetricDatum{MetricName: aws.String("ErrorsLoad"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["errors_load"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("ErrorsExport"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["errors_export"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("RecordsLoaded"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["records_loaded"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("RecordsExported"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["records_exported"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("Conversions"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["conversions"].(int64)))},
	)

	for name, records := range flowData {
		data = append(data, cwtypes.MetricDatum{
			MetricName: aws.String("FlowRecords"),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: []cwtypes.Dimension{{Name: aws.String("Flow"), Value: aws.String(name)}},
			Value:      aws.Float64(float64(records)),
		})
	}

	publishMetrics(ctx, data)
}
