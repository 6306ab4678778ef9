package main

import (
	"context"
	"errors"
	"flag"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"go.uber.org/zap"

	"github.com/RichardKnop/aerodb"
	"github.com/RichardKnop/aerodb/internal/pkg/logging"
)

const (
	defaultConnStr = "aerodb.db"
	defaultSchema  = "id:int,name:string,age:int"
)

func main() {
	var (
		connStr   = flag.String("db", defaultConnStr, "connection string")
		schemaStr = flag.String("schema", defaultSchema, "comma separated name:type fields")
		count     = flag.Int("n", 100, "number of records to insert")
		seed      = flag.Uint64("seed", uint64(time.Now().UnixNano()), "random seed")
	)
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger, err := logging.FromEnv("info")
	if err != nil {
		panic(err)
	}

	defer logger.Sync() // flushes buffer, if any

	schema, err := aerodb.ParseSchema(*schemaStr)
	if err != nil {
		panic(err)
	}
	config, err := aerodb.ParseConnectionString(*connStr)
	if err != nil {
		panic(err)
	}
	db, err := aerodb.OpenWithLogger(ctx, logger, config, schema)
	if err != nil {
		panic(err)
	}
	defer func() {
		if err := db.Close(ctx); err != nil {
			logger.Error("close database", zap.Error(err))
		}
	}()

	var (
		faker    = gofakeit.New(*seed)
		inserted int
	)
	for inserted < *count {
		values := fakeValues(faker, schema)
		if _, err := db.InsertRecord(ctx, values...); err != nil {
			if errors.Is(err, aerodb.ErrDuplicateKey) {
				continue
			}
			if errors.Is(err, aerodb.ErrPageFull) {
				logger.Warn("heap page is full", zap.Int("inserted", inserted))
				break
			}
			logger.Error("insert record", zap.Error(err))
			return
		}
		inserted += 1
	}

	logger.Info("added test data", zap.Int("inserted", inserted), zap.Uint64("seed", *seed))
}

// fakeValues picks a generator per field name, falling back on the field type.
func fakeValues(faker *gofakeit.Faker, schema *aerodb.TupleDesc) []any {
	values := make([]any, 0, schema.NumFields())
	for _, aField := range schema.Fields() {
		switch aField.Type {
		case aerodb.Int32:
			switch aField.Name {
			case "age":
				values = append(values, int32(faker.IntRange(18, 99)))
			case "id":
				values = append(values, int32(faker.IntRange(1, 1_000_000)))
			default:
				values = append(values, faker.Int32())
			}
		default:
			switch aField.Name {
			case "name":
				values = append(values, faker.Name())
			case "email":
				values = append(values, faker.Email())
			case "city":
				values = append(values, faker.City())
			default:
				values = append(values, faker.Word())
			}
		}
	}
	return values
}
