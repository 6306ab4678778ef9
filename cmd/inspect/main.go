package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/RichardKnop/aerodb"
	"github.com/RichardKnop/aerodb/internal/database"
	"github.com/RichardKnop/aerodb/internal/index"
	"github.com/RichardKnop/aerodb/internal/storage"
)

var (
	dbFlag     = flag.String("db", "aero.db", "Path to the data file")
	indexFlag  = flag.String("index", "", "Path to the index file, defaults to <db>.idx")
	schemaFlag = flag.String("schema", "id:int,name:string,age:int", "Comma separated name:type list of the record fields")
	pageFlag   = flag.Int("page", -1, "Only dump this index page")
)

var (
	primaryColor   = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"}
	secondaryColor = lipgloss.AdaptiveColor{Light: "#0F766E", Dark: "#5EEAD4"}
	mutedColor     = lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"}
	errorColor     = lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#F87171"}

	titleStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true).
			Padding(0, 1)

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(secondaryColor).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)
)

func main() {
	flag.Parse()

	schema, err := aerodb.ParseSchema(*schemaFlag)
	if err != nil {
		fail(err)
	}

	indexPath := *indexFlag
	if indexPath == "" {
		indexPath = *dbFlag + ".idx"
	}

	if err := dumpDataFile(*dbFlag, schema); err != nil {
		fail(err)
	}
	if err := dumpIndexFile(indexPath, *pageFlag); err != nil {
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
	os.Exit(1)
}

func openReadOnly(path string) (*storage.DiskManager, error) {
	aFile, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return storage.NewDiskManager(aFile), nil
}

func dumpDataFile(path string, schema *storage.TupleDesc) error {
	disk, err := openReadOnly(path)
	if err != nil {
		return err
	}
	defer disk.Close()

	numPages, err := disk.NumPages()
	if err != nil {
		return err
	}
	fmt.Println(titleStyle.Render(fmt.Sprintf("data file %s (%d pages)", path, numPages)))
	if numPages == 0 {
		return nil
	}

	aPage, err := disk.ReadPage(0)
	if err != nil {
		return err
	}
	aHeapPage, _ := storage.NewHeapPage(aPage)

	lines := []string{
		field("page", "0"),
		field("tuples", fmt.Sprint(aHeapPage.NumTuples())),
		field("free space", fmt.Sprintf("%d bytes", aHeapPage.FreeSpace())),
	}
	for slot := uint32(0); slot < aHeapPage.NumTuples(); slot++ {
		offset, length, err := aHeapPage.SlotAt(slot)
		if err != nil {
			lines = append(lines, errorStyle.Render(err.Error()))
			break
		}
		slotInfo := mutedStyle.Render(fmt.Sprintf("slot %3d  [%4d, %3d]", slot, offset, length))
		aTuple, err := aHeapPage.GetTuple(slot, schema)
		if err != nil {
			lines = append(lines, slotInfo+" "+errorStyle.Render(err.Error()))
			continue
		}
		lines = append(lines, slotInfo+" "+aTuple.String())
	}

	fmt.Println(boxStyle.Render(strings.Join(lines, "\n")))
	return nil
}

func dumpIndexFile(path string, only int) error {
	disk, err := openReadOnly(path)
	if err != nil {
		return err
	}
	defer disk.Close()

	numPages, err := disk.NumPages()
	if err != nil {
		return err
	}
	fmt.Println(titleStyle.Render(fmt.Sprintf("index file %s (%d pages)", path, numPages)))
	if numPages == 0 {
		return nil
	}

	aMetaPage, err := disk.ReadPage(database.MetaPageID)
	if err != nil {
		return err
	}
	rootPageID, err := database.ReadMeta(aMetaPage)
	if err != nil {
		return err
	}
	fmt.Println(boxStyle.Render(field("meta", fmt.Sprintf("root page %d", rootPageID))))

	for id := storage.PageID(1); uint32(id) < numPages; id++ {
		if only >= 0 && storage.PageID(only) != id {
			continue
		}
		aPage, err := disk.ReadPage(id)
		if err != nil {
			return err
		}
		fmt.Println(boxStyle.Render(describeIndexPage(aPage, id == rootPageID)))
	}
	return nil
}

func describeIndexPage(aPage *storage.Page, isRoot bool) string {
	title := fmt.Sprintf("page %d", aPage.ID)
	if isRoot {
		title += " (root)"
	}

	aLeaf, err := index.LeafPageFrom(aPage)
	if err == nil {
		return strings.Join([]string{
			labelStyle.Render(title),
			field("type", index.LeafPageType.String()),
			field("keys", fmt.Sprintf("%d / %d", aLeaf.NumKeys(), aLeaf.MaxKeys())),
			field("entries", formatEntries(aLeaf.Entries())),
		}, "\n")
	}
	if !errors.Is(err, index.ErrInvalidPageType) {
		return labelStyle.Render(title) + "\n" + errorStyle.Render(err.Error())
	}

	anInternal, err := index.InternalPageFrom(aPage)
	if err != nil {
		return labelStyle.Render(title) + "\n" + errorStyle.Render(err.Error())
	}
	return strings.Join([]string{
		labelStyle.Render(title),
		field("type", index.InternalPageType.String()),
		field("keys", fmt.Sprintf("%d / %d", anInternal.NumKeys(), anInternal.MaxKeys())),
		field("separators", fmt.Sprint(anInternal.Keys())),
		field("children", fmt.Sprint(anInternal.Children())),
	}, "\n")
}

func formatEntries(entries []index.LeafEntry) string {
	parts := make([]string, 0, len(entries))
	for _, anEntry := range entries {
		parts = append(parts, fmt.Sprintf("%d=%s", anEntry.Key, anEntry.RecordID))
	}
	return strings.Join(parts, " ")
}

func field(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label+": "), value)
}
