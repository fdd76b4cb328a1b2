package commands

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis/pit/internal/s0_data/quality"
	"github.com/wonny/aegis/pit/internal/scheduler"
	"github.com/wonny/aegis/pit/internal/scheduler/jobs"
	"github.com/wonny/aegis/pit/pkg/metrics"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "정기 리밸런싱 스케줄러 실행",
	Long: `전략 주기(M/Q 등)에 맞춰 장 마감 후 리밸런싱을 실행합니다.

결과 비중은 prior 저장소에 저장되어 다음 리밸런싱의 회전율 계산에 쓰입니다.

Example:
  go run ./cmd/quant scheduler
  go run ./cmd/quant scheduler --cron "0 0 17 * * MON-FRI"
  go run ./cmd/quant scheduler --once`,
	RunE: runScheduler,
}

var (
	schedulerCron    string
	schedulerOnce    bool
	schedulerSectors bool
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.Flags().StringVar(&schedulerCron, "cron", jobs.DefaultRebalanceSchedule, "cron schedule with seconds field")
	schedulerCmd.Flags().BoolVar(&schedulerOnce, "once", false, "run the job once now and exit")
	schedulerCmd.Flags().BoolVar(&schedulerSectors, "resolve-sectors", false, "look up sectors on Naver Finance at startup")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	var recorder *metrics.Recorder
	if rt.cfg.MetricsEnabled {
		recorder = metrics.New()
	}

	var ids []string
	if schedulerSectors {
		panel, err := rt.source.LoadPrices(ctx, time.Now().AddDate(0, 0, -30), time.Time{})
		if err != nil {
			return err
		}
		ids = panel.Instruments()
	}

	job := jobs.NewRebalanceJob(
		rt.spec.Orchestrator(rt.sectors(ctx, schedulerSectors, ids), rt.log),
		rt.source,
		rt.priorStore(),
		quality.NewQualityGate(rt.spec.Guard(), quality.DefaultConfig()),
		recorder,
		jobs.RebalanceConfig{
			Strategy:  rt.spec.Name,
			Frequency: rt.spec.Frequency(),
			Schedule:  schedulerCron,
		},
		rt.log,
	)

	sched := scheduler.New(rt.log, recorder)
	if err := sched.AddJob(job); err != nil {
		return err
	}

	if schedulerOnce {
		result, err := sched.RunNow(ctx, job.Name())
		if err != nil {
			return err
		}
		if jsonOutput {
			return PrintJSON(result)
		}
		if !result.Success {
			PrintError(fmt.Sprintf("%s failed after %d attempts: %s", result.JobName, result.Attempts, result.Error))
			return fmt.Errorf("job %s failed", result.JobName)
		}
		PrintSuccess(fmt.Sprintf("%s completed in %s", result.JobName, result.Duration.Round(time.Millisecond)))
		return nil
	}

	sched.Start()
	rt.log.WithFields(map[string]interface{}{
		"job":      job.Name(),
		"schedule": job.Schedule(),
	}).Info("Scheduler running")

	<-ctx.Done()
	sched.Stop()
	return nil
}
