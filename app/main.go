package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater"
	"github.com/go-pkgz/repeater/strategy"
	"github.com/go-pkgz/syncs"
	"github.com/robfig/cron/v3"
	"github.com/umputun/go-flags"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/MusClub-NSU/MusClub-manager/app/ai"
	"github.com/MusClub-NSU/MusClub-manager/app/club"
	"github.com/MusClub-NSU/MusClub-manager/app/notify"
	"github.com/MusClub-NSU/MusClub-manager/app/reminder"
	"github.com/MusClub-NSU/MusClub-manager/app/seed"
	"github.com/MusClub-NSU/MusClub-manager/app/store"
	"github.com/MusClub-NSU/MusClub-manager/app/web"
)

var opts struct {
	Seed string `long:"seed" env:"MUSCLUB_SEED" description:"seed YAML file with demo users and events"`
	Dbg  bool   `long:"dbg" env:"MUSCLUB_DEBUG" description:"debug mode"`

	DB struct {
		Type string `long:"type" env:"TYPE" default:"sqlite" choice:"sqlite" choice:"postgres" description:"database type"`
		DSN  string `long:"dsn" env:"DSN" default:"musclub.db" description:"sqlite file or postgres connection string"`
	} `group:"db" namespace:"db" env-namespace:"MUSCLUB_DB"`

	Web struct {
		Address string   `long:"address" env:"ADDRESS" default:":8080" description:"listen address"`
		CORS    []string `long:"cors" env:"CORS" env-delim:"," default:"http://localhost:5173" description:"allowed client origins"`
		AIRate  float64  `long:"ai-rate" env:"AI_RATE" default:"1" description:"AI requests per second per client"`
	} `group:"web" namespace:"web" env-namespace:"MUSCLUB_WEB"`

	Reminder struct {
		Spec        string        `long:"spec" env:"SPEC" default:"@every 1m" description:"dispatch schedule"`
		Lead        time.Duration `long:"lead" env:"LEAD" default:"24h" description:"send reminders this long before start"`
		Concurrency int           `long:"concurrency" env:"CONCURRENCY" default:"4" description:"parallel deliveries"`
		BatchSize   int           `long:"batch" env:"BATCH" default:"100" description:"max reminders per dispatch"`
		SendTimeout time.Duration `long:"send-timeout" env:"SEND_TIMEOUT" default:"30s" description:"single delivery timeout"`
		Template    string        `long:"template" env:"TEMPLATE" description:"custom reminder html template"`
		TimeZone    string        `long:"tz" env:"TZ" default:"UTC" description:"time zone of times in messages"`
		Attempts    int           `long:"attempts" env:"ATTEMPTS" default:"3" description:"delivery attempts"`
		Duration    time.Duration `long:"duration" env:"DURATION" default:"1s" description:"initial retry delay"`
		Factor      float64       `long:"factor" env:"FACTOR" default:"2" description:"retry backoff factor"`
	} `group:"reminder" namespace:"reminder" env-namespace:"MUSCLUB_REMINDER"`

	SMTP struct {
		Host      string        `long:"host" env:"HOST" description:"SMTP host, reminders are not sent if empty"`
		Port      int           `long:"port" env:"PORT" default:"587" description:"SMTP port"`
		Username  string        `long:"username" env:"USERNAME" description:"SMTP user name"`
		Password  string        `long:"password" env:"PASSWORD" description:"SMTP password"`
		TLS       bool          `long:"tls" env:"TLS" description:"enable SMTP TLS"`
		StartTLS  bool          `long:"starttls" env:"STARTTLS" description:"enable SMTP STARTTLS"`
		LoginAuth bool          `long:"login-auth" env:"LOGIN_AUTH" description:"use LOGIN auth instead of PLAIN"`
		TimeOut   time.Duration `long:"timeout" env:"TIMEOUT" default:"10s" description:"SMTP TCP connection timeout"`
		From      string        `long:"from" env:"FROM" description:"SMTP from email"`
	} `group:"smtp" namespace:"smtp" env-namespace:"MUSCLUB_SMTP"`

	AI struct {
		URL     string        `long:"url" env:"URL" default:"https://api.deepseek.com/chat/completions" description:"chat completions endpoint"`
		Key     string        `long:"key" env:"KEY" description:"API key, AI endpoints are unavailable if empty"`
		Model   string        `long:"model" env:"MODEL" default:"deepseek-chat" description:"model name"`
		Timeout time.Duration `long:"timeout" env:"TIMEOUT" default:"30s" description:"request timeout"`
	} `group:"ai" namespace:"ai" env-namespace:"MUSCLUB_AI"`

	Log struct {
		Enabled         bool   `long:"enabled" env:"ENABLED" description:"enable logging to file"`
		Filename        string `long:"filename" env:"FILENAME" default:"musclub.log" description:"log file name"`
		MaxSize         int    `long:"max-size" env:"MAX_SIZE" default:"100" description:"max log file size in megabytes"`
		MaxBackups      int    `long:"max-backups" env:"MAX_BACKUPS" default:"7" description:"max number of old log files"`
		MaxAge          int    `long:"max-age" env:"MAX_AGE" default:"0" description:"max days to keep old log files"`
		EnabledCompress bool   `long:"compress" env:"COMPRESS" description:"compress rotated log files"`
	} `group:"log" namespace:"log" env-namespace:"MUSCLUB_LOG"`
}

var revision = "unknown"

func main() {
	fmt.Printf("musclub-manager %s\n", revision)

	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(2)
	}
	setupLogs()

	defer func() {
		if x := recover(); x != nil {
			log.Printf("[WARN] run time panic:\n%v", x)
			panic(x)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	signals(cancel) // handle SIGQUIT and SIGTERM

	if err := run(ctx); err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	st, err := store.New(opts.DB.Type, opts.DB.DSN)
	if err != nil {
		return fmt.Errorf("can't open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Printf("[WARN] failed to close store: %v", err)
		}
	}()

	clubSvc := club.New(st)
	if opts.Seed != "" {
		if err := loadSeed(ctx, opts.Seed, clubSvc, st); err != nil {
			return err
		}
	}

	loc, err := time.LoadLocation(opts.Reminder.TimeZone)
	if err != nil {
		return fmt.Errorf("can't load time zone %q: %w", opts.Reminder.TimeZone, err)
	}

	planner := &reminder.Planner{Store: st, Renderer: notify.NewTemplates(opts.Reminder.Template, loc), Lead: opts.Reminder.Lead}
	generator := &ai.Generator{Store: st, Location: loc}
	if aiClient := makeAIClient(); aiClient.Configured() {
		generator.Provider = aiClient
	} else {
		log.Printf("[WARN] AI key is not set, AI endpoints are disabled")
	}

	srv, err := web.New(web.Config{
		Club:        clubSvc,
		Reminders:   planner,
		AI:          generator,
		Stats:       st,
		Version:     revision,
		CORSOrigins: opts.Web.CORS,
		AIRateLimit: opts.Web.AIRate,
	})
	if err != nil {
		return fmt.Errorf("can't make web server: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	wg := syncs.NewErrSizedGroup(2)
	if sender := makeNotifier(); sender != nil {
		dispatcher := makeDispatcher(st, sender)
		wg.Go(func() error {
			defer cancel()
			return dispatcher.Do(ctx)
		})
	} else {
		log.Printf("[WARN] SMTP host is not set, reminders will be stored but not sent")
	}
	wg.Go(func() error {
		defer cancel() // web server failure stops dispatcher too
		return srv.Run(ctx, opts.Web.Address)
	})
	return wg.Wait()
}

func loadSeed(ctx context.Context, file string, svc *club.Service, st *store.Store) error {
	cfg, err := seed.Parse(file)
	if err != nil {
		return err
	}
	loader := &seed.Loader{Service: svc, Store: st}
	if _, err := loader.Load(ctx, cfg); err != nil {
		return fmt.Errorf("can't load seed %s: %w", file, err)
	}
	return nil
}

func makeNotifier() *notify.Service {
	if opts.SMTP.Host == "" {
		return nil
	}
	from := opts.SMTP.From
	if from == "" {
		from = "musclub@" + makeHostName()
	}
	return notify.NewService(from, notify.NewEmail(notify.EmailParams{
		Host:      opts.SMTP.Host,
		Port:      opts.SMTP.Port,
		TLS:       opts.SMTP.TLS,
		StartTLS:  opts.SMTP.StartTLS,
		Username:  opts.SMTP.Username,
		Password:  opts.SMTP.Password,
		LoginAuth: opts.SMTP.LoginAuth,
		TimeOut:   opts.SMTP.TimeOut,
	}))
}

// makeHostName returns the short host name, "localhost" if it can't be detected
func makeHostName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "localhost"
	}
	if idx := strings.Index(host, "."); idx > 0 {
		host = host[:idx]
	}
	return host
}

func makeDispatcher(st *store.Store, sender reminder.Sender) *reminder.Dispatcher {
	return &reminder.Dispatcher{
		Store:  st,
		Sender: sender,
		Cron:   cron.New(),
		Repeater: repeater.New(&strategy.Backoff{Repeats: opts.Reminder.Attempts, Duration: opts.Reminder.Duration,
			Factor: opts.Reminder.Factor, Jitter: true}),
		Spec:        opts.Reminder.Spec,
		Concurrency: opts.Reminder.Concurrency,
		BatchSize:   opts.Reminder.BatchSize,
		SendTimeout: opts.Reminder.SendTimeout,
	}
}

func makeAIClient() *ai.Client {
	return &ai.Client{URL: opts.AI.URL, APIKey: opts.AI.Key, Model: opts.AI.Model, Timeout: opts.AI.Timeout}
}

// setupLogs configures lgr, returns the writer used for logs
func setupLogs() io.Writer {
	var out io.Writer = os.Stdout
	if opts.Log.Enabled {
		out = &lumberjack.Logger{
			Filename:   opts.Log.Filename,
			MaxSize:    opts.Log.MaxSize,
			MaxBackups: opts.Log.MaxBackups,
			MaxAge:     opts.Log.MaxAge,
			Compress:   opts.Log.EnabledCompress,
		}
	}

	if opts.Dbg {
		log.Setup(log.Out(out), log.Err(out), log.Debug, log.Msec, log.CallerFunc, log.CallerPkg, log.CallerFile)
		return out
	}
	log.Setup(log.Out(out), log.Err(out), log.Msec)
	return out
}

func signals(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	go func() {
		stacktrace := make([]byte, 8192)
		for sig := range sigChan {
			if sig == syscall.SIGQUIT { // catch SIGQUIT and print stack traces
				length := runtime.Stack(stacktrace, true)
				fmt.Println(string(stacktrace[:length]))
				continue
			}
			log.Printf("[INFO] got %v, terminating", sig)
			cancel()
		}
	}()
	signal.Notify(sigChan, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT)
}
