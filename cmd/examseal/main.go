// Command examseal publishes an exam: it seals a plaintext question file
// into an encrypted envelope, writes it to the content store and can
// register the exam in the catalog.
//
//	examseal seal -in exam.json -name "Algebra" -institute inst-1 [-register] [-approve]
//	examseal seal -in package.zip -format qti
//	examseal token -sub stu-1 -role student
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	auth "github.com/mind-engage/examvault/internal/auth/middleware"
	"github.com/mind-engage/examvault/internal/config"
	"github.com/mind-engage/examvault/internal/db"
	"github.com/mind-engage/examvault/internal/exam"
	"github.com/mind-engage/examvault/internal/logger"
	"github.com/mind-engage/examvault/internal/qti"
	"github.com/mind-engage/examvault/internal/storage"
	"github.com/mind-engage/examvault/internal/vault"
)

func main() {
	cfg, err := config.Load()
	log := logger.NewWithOutput("examseal", cfg.LogLevel, os.Stderr)
	if err != nil {
		log.WithError(err).Fatal("config")
	}
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "seal":
		err = seal(cfg, log, os.Args[2:])
	case "token":
		err = token(cfg, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.WithError(err).Fatal(os.Args[1])
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: examseal seal|token [flags]")
}

type sealOutput struct {
	ExamID         string `json:"examId,omitempty"`
	ContentAddress string `json:"contentAddress"`
	EncryptionKey  string `json:"encryptionKey"`
	Questions      int    `json:"questions"`
}

func seal(cfg config.Config, log logrus.FieldLogger, args []string) error {
	fl := flag.NewFlagSet("seal", flag.ExitOnError)
	in := fl.String("in", "", "plaintext exam JSON ({\"questions\":[...]}) or QTI package")
	format := fl.String("format", "", "json or qti; inferred from the -in extension when empty")
	alg := fl.String("alg", vault.AlgAES256CBC, "aes-256-cbc or xchacha20-poly1305")
	key := fl.String("key", "", "hex key; generated when empty")
	blobs := fl.String("blobs", cfg.BlobBasePath, "content store directory")
	register := fl.Bool("register", false, "insert the exam into the catalog database")
	id := fl.String("id", "", "exam id; generated when empty")
	name := fl.String("name", "", "exam name")
	institute := fl.String("institute", "", "owning institute id")
	limit := fl.Int("time-limit", 60, "time limit in minutes")
	approve := fl.Bool("approve", false, "register the exam as approved")
	_ = fl.Parse(args)

	if *in == "" {
		return fmt.Errorf("-in is required")
	}
	doc, err := readDocument(*in, *format)
	if err != nil {
		return err
	}
	if *key == "" {
		if *key, err = vault.NewKey(); err != nil {
			return err
		}
	}
	env, err := vault.Seal(doc, *key, *alg)
	if err != nil {
		return err
	}
	fs, err := storage.NewFSStore(*blobs, nil)
	if err != nil {
		return err
	}
	address, err := fs.Put(env)
	if err != nil {
		return err
	}
	out := sealOutput{ContentAddress: address, EncryptionKey: *key, Questions: len(doc.Questions)}

	if *register {
		if *name == "" || *institute == "" {
			return fmt.Errorf("-register needs -name and -institute")
		}
		if *id == "" {
			*id = uuid.NewString()
		}
		state := exam.ApprovalPending
		if *approve {
			state = exam.ApprovalApproved
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		driver := db.Normalize(cfg.DBDriver)
		dbh, err := db.Open(ctx, driver, cfg.DBDSN)
		if err != nil {
			return err
		}
		defer dbh.Close()
		err = exam.NewSQLStore(dbh, string(driver)).PutExam(ctx, exam.Exam{
			ID:               *id,
			InstituteID:      *institute,
			ContentAddress:   address,
			EncryptionKey:    *key,
			Name:             *name,
			TimeLimitMinutes: *limit,
			QuestionCount:    len(doc.Questions),
			ApprovalState:    state,
		})
		if err != nil {
			return fmt.Errorf("register exam: %w", err)
		}
		out.ExamID = *id
		log.WithFields(logrus.Fields{"exam_id": *id, "address": address, "state": state}).Info("exam registered")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func readDocument(name, format string) (exam.Document, error) {
	if format == "" {
		format = "json"
		if strings.EqualFold(filepath.Ext(name), ".zip") {
			format = "qti"
		}
	}
	switch format {
	case "qti":
		return qti.ImportFile(name)
	case "json":
		raw, err := os.ReadFile(name)
		if err != nil {
			return exam.Document{}, err
		}
		doc, err := vault.ParseDocument(raw)
		if err != nil {
			return exam.Document{}, fmt.Errorf("parse %s: %w", name, err)
		}
		return doc, nil
	default:
		return exam.Document{}, fmt.Errorf("unknown format %q", format)
	}
}

func token(cfg config.Config, args []string) error {
	fl := flag.NewFlagSet("token", flag.ExitOnError)
	sub := fl.String("sub", "", "subject id")
	role := fl.String("role", "student", "student, institute or admin")
	_ = fl.Parse(args)
	if *sub == "" {
		return fmt.Errorf("-sub is required")
	}
	tok, err := auth.NewAuthService(cfg.AuthHMACSecret).IssueJWT(*sub, *role)
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}
