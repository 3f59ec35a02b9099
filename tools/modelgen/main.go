package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gen"
	"gorm.io/gorm"
)

var tables = []string{
	"journal_entries",
	"session_scores",
	"schema_migrations",
}

func main() {
	var dsn, out string
	flag.StringVar(&dsn, "dsn", os.Getenv("SATFARM_DB_DSN"), "postgres dsn of a migrated satfarm database")
	flag.StringVar(&out, "out", "internal/adapter/repo/gorm/model", "output dir for generated models")
	flag.Parse()

	if dsn == "" {
		log.Fatal("missing --dsn or SATFARM_DB_DSN")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}

	g := gen.NewGenerator(gen.Config{
		OutPath:       out,
		ModelPkgPath:  "model",
		FieldNullable: false,
	})
	g.UseDB(db)
	for _, t := range tables {
		g.GenerateModel(t)
	}
	g.Execute()

	fmt.Printf("generated %d satfarm models at %s\n", len(tables), out)
}
