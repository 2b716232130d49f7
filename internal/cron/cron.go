package cron

import (
	"context"
	"sync"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/pkg/errors"
	cronv3 "github.com/robfig/cron/v3"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/leaderelection"
	"k8s.io/client-go/tools/leaderelection/resourcelock"

	"github.com/customeros/waitlist/config"
	"github.com/customeros/waitlist/interfaces"
	cron_config "github.com/customeros/waitlist/internal/cron/config"
	"github.com/customeros/waitlist/internal/logger"
	"github.com/customeros/waitlist/internal/tracing"
	"github.com/customeros/waitlist/internal/utils"
)

const (
	// GroupWaitlist serializes jobs that write waitlist tables
	GroupWaitlist = "waitlist"

	LeaseName = "waitlist-cron-leader"
	// LeaseDuration is how long a lease lasts before needing renewal
	LeaseDuration = 15 * time.Second
	// RenewDeadline is how long a leader has to renew its lease
	RenewDeadline = 10 * time.Second
	// RetryPeriod is how long to wait between leadership attempts
	RetryPeriod = 2 * time.Second

	jobTimeout = 10 * time.Minute
)

var jobLocks = struct {
	sync.Mutex
	locks map[string]*sync.Mutex
}{
	locks: map[string]*sync.Mutex{
		GroupWaitlist: new(sync.Mutex),
	},
}

type CronManager struct {
	cfg      *config.Config
	log      logger.Logger
	cron     *cronv3.Cron
	cronLock sync.Mutex
	k8s      kubernetes.Interface
	stopCh   chan struct{}
	stopOnce sync.Once
	cancel   context.CancelFunc
	jobIDs   map[string]cronv3.EntryID
	waitlist interfaces.WaitlistService
}

func NewCronManager(cfg *config.Config, log logger.Logger, k8s kubernetes.Interface, waitlist interfaces.WaitlistService) *CronManager {
	return &CronManager{
		cfg:      cfg,
		log:      log,
		k8s:      k8s,
		stopCh:   make(chan struct{}),
		jobIDs:   make(map[string]cronv3.EntryID),
		waitlist: waitlist,
	}
}

// Start runs the scheduler under k8s leader election. Without a k8s client, or in
// local development, it starts the scheduler directly.
func (cm *CronManager) Start(podName, namespace string) error {
	if cm.k8s == nil || (cm.cfg != nil && cm.cfg.AppConfig != nil && cm.cfg.AppConfig.LocalDev) {
		cm.log.Info("Starting cron manager in local mode")
		return cm.StartCron()
	}

	lock := &resourcelock.LeaseLock{
		LeaseMeta: metav1.ObjectMeta{
			Name:      LeaseName,
			Namespace: namespace,
		},
		Client: cm.k8s.CoordinationV1(),
		LockConfig: resourcelock.ResourceLockConfig{
			Identity: podName,
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cm.cancel = cancel
	errCh := make(chan error, 1)

	go func() {
		defer tracing.RecoverAndLogToJaeger(cm.log)

		le, err := leaderelection.NewLeaderElector(leaderelection.LeaderElectionConfig{
			Lock:            lock,
			ReleaseOnCancel: true,
			LeaseDuration:   LeaseDuration,
			RenewDeadline:   RenewDeadline,
			RetryPeriod:     RetryPeriod,
			Callbacks: leaderelection.LeaderCallbacks{
				OnStartedLeading: func(ctx context.Context) {
					if err := cm.StartCron(); err != nil {
						cm.log.Errorf("Failed to start crons as leader: %v", err)
					}
				},
				OnStoppedLeading: func() {
					cm.log.Info("Leader lost - stopping crons")
					cm.stopCron()
				},
				OnNewLeader: func(identity string) {
					cm.log.Infof("New leader elected: %s", identity)
				},
			},
		})
		if err != nil {
			errCh <- err
			return
		}

		le.Run(ctx)
	}()

	select {
	case err := <-errCh:
		cm.log.Warnf("Leader election failed, falling back to local mode: %v", err)
		return cm.StartCron()
	case <-time.After(5 * time.Second):
	}

	return nil
}

// Stop gracefully stops the cron manager. It is safe to call more than once.
func (cm *CronManager) Stop() {
	cm.stopOnce.Do(func() {
		if cm.cancel != nil {
			cm.cancel()
		}
		cm.stopCron()
		close(cm.stopCh)
	})
}

func (cm *CronManager) stopCron() {
	cm.cronLock.Lock()
	c := cm.cron
	cm.cron = nil
	cm.cronLock.Unlock()

	if c != nil {
		cm.log.Info("Stopping cron manager")
		// wait for running jobs
		<-c.Stop().Done()
	}
}

func (cm *CronManager) cronConfig() (*cron_config.Config, error) {
	if cm.cfg != nil && cm.cfg.CronConfig != nil {
		return cm.cfg.CronConfig, nil
	}
	var cronConfig cron_config.Config
	if err := env.Parse(&cronConfig); err != nil {
		return nil, errors.Wrap(err, "failed to parse cron config from environment")
	}
	return &cronConfig, nil
}

func (cm *CronManager) registerJobs(c *cronv3.Cron) error {
	cronConfig, err := cm.cronConfig()
	if err != nil {
		return err
	}

	if cronConfig.CronScheduleHeartbeat != "" {
		podName := "local"
		if cm.cfg != nil && cm.cfg.AppConfig != nil && cm.cfg.AppConfig.PodName != "" {
			podName = cm.cfg.AppConfig.PodName
		}
		err := cm.addJob(c, "heartbeat", cronConfig.CronScheduleHeartbeat, func() {
			cm.log.Infof("Cron heartbeat from pod: %s", podName)
		})
		if err != nil {
			return err
		}
	}

	if cronConfig.CronScheduleRetryConfirmations != "" {
		minAge, err := time.ParseDuration(cronConfig.RetryConfirmationsMinAge)
		if err != nil {
			return errors.Wrapf(err, "invalid retry confirmations min age %q", cronConfig.RetryConfirmationsMinAge)
		}
		maxAttempts := cronConfig.RetryConfirmationsMaxAttempts
		err = cm.addJob(c, "retry_confirmations", cronConfig.CronScheduleRetryConfirmations, func() {
			jobLocks.locks[GroupWaitlist].Lock()
			defer jobLocks.locks[GroupWaitlist].Unlock()
			cm.retryConfirmations(minAge, maxAttempts)
		})
		if err != nil {
			return err
		}
	}

	if cronConfig.CronScheduleScamLogRetention != "" {
		err := cm.addJob(c, "scam_log_retention", cronConfig.CronScheduleScamLogRetention, func() {
			jobLocks.locks[GroupWaitlist].Lock()
			defer jobLocks.locks[GroupWaitlist].Unlock()
			cm.purgeScamLogs()
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func (cm *CronManager) addJob(c *cronv3.Cron, name, schedule string, job func()) error {
	id, err := c.AddFunc(schedule, func() {
		defer tracing.RecoverAndLogToJaeger(cm.log)
		job()
	})
	if err != nil {
		return errors.Wrapf(err, "could not add %s cron job", name)
	}
	cm.jobIDs[name] = id
	cm.log.Infof("Registered %s job with schedule: %s", name, schedule)
	return nil
}

// StartCron creates the scheduler with seconds precision and starts it.
func (cm *CronManager) StartCron() error {
	cm.cronLock.Lock()
	defer cm.cronLock.Unlock()

	if cm.cron != nil {
		return nil
	}

	cm.log.Info("Starting cron manager")
	c := cronv3.New(
		cronv3.WithSeconds(),
		cronv3.WithChain(
			cronv3.SkipIfStillRunning(cronv3.DefaultLogger),
			cronv3.Recover(cronv3.DefaultLogger),
		),
	)
	if err := cm.registerJobs(c); err != nil {
		return err
	}
	c.Start()
	cm.cron = c
	return nil
}

func (cm *CronManager) jobContext() (context.Context, context.CancelFunc) {
	ctx := utils.WithCustomContext(context.Background(), &utils.CustomContext{AppSource: utils.AppSourceCron})
	return context.WithTimeout(ctx, jobTimeout)
}

func (cm *CronManager) retryConfirmations(minAge time.Duration, maxAttempts int) {
	ctx, cancel := cm.jobContext()
	defer cancel()

	span, ctx := tracing.StartTracerSpan(ctx, "CronManager.retryConfirmations")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	sent, err := cm.waitlist.RetryPendingConfirmations(ctx, minAge, maxAttempts)
	if err != nil {
		tracing.TraceErr(span, err)
		cm.log.Errorf("Failed to retry pending confirmations: %v", err)
		return
	}
	if sent > 0 {
		cm.log.Infof("Resent %d pending confirmations", sent)
	}
}

func (cm *CronManager) purgeScamLogs() {
	ctx, cancel := cm.jobContext()
	defer cancel()

	span, ctx := tracing.StartTracerSpan(ctx, "CronManager.purgeScamLogs")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	retentionDays := 180
	if cm.cfg != nil && cm.cfg.IntakeConfig != nil && cm.cfg.IntakeConfig.ScamLogRetentionDays > 0 {
		retentionDays = cm.cfg.IntakeConfig.ScamLogRetentionDays
	}

	deleted, err := cm.waitlist.PurgeScamLogs(ctx, time.Duration(retentionDays)*24*time.Hour)
	if err != nil {
		tracing.TraceErr(span, err)
		cm.log.Errorf("Failed to purge scam log entries: %v", err)
		return
	}
	cm.log.Infof("Purged %d scam log entries older than %d days", deleted, retentionDays)
}
