package storage

import (
	"os"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/require"
)

const testDbName = "test_db"

var (
	gen = newDataGen(uint64(time.Now().Unix()))

	testDesc = NewTupleDesc().
			AddField(Int32, "id").
			AddField(UTF8String, "name").
			AddField(Int32, "age")
)

type dataGen struct {
	*gofakeit.Faker
}

func newDataGen(seed uint64) *dataGen {
	g := dataGen{
		Faker: gofakeit.New(seed),
	}

	return &g
}

func (g *dataGen) Tuple() *Tuple {
	aTuple, err := NewTupleWithValues(testDesc, g.Int32(), g.Name(), int32(g.IntRange(18, 100)))
	if err != nil {
		panic(err)
	}
	return aTuple
}

func (g *dataGen) Tuples(number int) []*Tuple {
	tuples := make([]*Tuple, 0, number)
	for range number {
		tuples = append(tuples, g.Tuple())
	}
	return tuples
}

// RandomDesc builds a schema of 1-8 fields with random types.
func (g *dataGen) RandomDesc() *TupleDesc {
	desc := NewTupleDesc()
	for i := range g.IntRange(1, 8) {
		aType := Int32
		if g.Bool() {
			aType = UTF8String
		}
		desc.AddField(aType, g.Word()+"_"+string(rune('a'+i)))
	}
	return desc
}

func (g *dataGen) TupleFor(desc *TupleDesc) *Tuple {
	aTuple := NewTuple(desc)
	for i := 0; i < desc.NumFields(); i++ {
		aType, _ := desc.Type(i)
		var err error
		switch aType {
		case Int32:
			err = aTuple.SetField(i, g.Int32())
		case UTF8String:
			err = aTuple.SetField(i, g.LetterN(uint(g.IntRange(0, 40))))
		}
		if err != nil {
			panic(err)
		}
	}
	return aTuple
}

func newTestDiskManager(t *testing.T) (*DiskManager, *os.File) {
	dbFile, err := os.CreateTemp(t.TempDir(), testDbName)
	require.NoError(t, err)
	t.Cleanup(func() { dbFile.Close() })
	return NewDiskManager(dbFile), dbFile
}
