package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type Catalogs struct {
	Blocks       BlockCatalog
	Items        ItemCatalog
	Enchantments EnchantmentCatalog
}

type BlockCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]BlockDef
	PaletteDigest string
	DefsDigest    string
}

type BlockDef struct {
	ID       string `json:"id"`
	Solid    bool   `json:"solid"`
	Liquid   bool   `json:"liquid,omitempty"`
	Passable bool   `json:"passable,omitempty"`
	Family   string `json:"family,omitempty"` // "ice", "glass", ...
}

type ItemCatalog struct {
	Palette       []string
	Defs          map[string]ItemDef
	PaletteDigest string
	DefsDigest    string
}

type ItemDef struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"` // "BLOCK","TOOL","WEAPON","ARMOR","MATERIAL","FOOD"
	MaxStack int    `json:"max_stack"`
}

type EnchantmentCatalog struct {
	Defs   map[string]EnchantmentDef
	Digest string
}

type EnchantmentDef struct {
	ID       string `json:"id"`
	MaxLevel int    `json:"max_level"`
	// AppliesTo lists item kinds; empty means any kind.
	AppliesTo []string `json:"applies_to,omitempty"`
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadBlocks(filepath.Join(configDir, "blocks.json"), &c.Blocks); err != nil {
		return nil, err
	}
	if err := loadItems(filepath.Join(configDir, "items.json"), &c.Items); err != nil {
		return nil, err
	}
	if err := loadEnchantments(filepath.Join(configDir, "enchantments.json"), &c.Enchantments); err != nil {
		return nil, err
	}
	return &c, nil
}

// Digest identifies the full catalog set; replays refuse to run against a different one.
func (c *Catalogs) Digest() string {
	return sha256Hex([]byte(c.Blocks.DefsDigest + c.Items.DefsDigest + c.Enchantments.Digest))
}

func (c *Catalogs) BlockFamily(id string) string {
	return c.Blocks.Defs[id].Family
}

// MaxStack returns the item's stack limit; unknown items report false.
func (c *Catalogs) MaxStack(id string) (int, bool) {
	d, ok := c.Items.Defs[id]
	if !ok {
		return 0, false
	}
	return d.MaxStack, true
}

// EnchantmentAllowed reports the max level for ench on item and whether the
// pairing is legal at all.
func (c *Catalogs) EnchantmentAllowed(item, ench string) (int, bool) {
	e, ok := c.Enchantments.Defs[ench]
	if !ok {
		return 0, false
	}
	if len(e.AppliesTo) == 0 {
		return e.MaxLevel, true
	}
	kind := c.Items.Defs[item].Kind
	for _, k := range e.AppliesTo {
		if strings.EqualFold(k, kind) {
			return e.MaxLevel, true
		}
	}
	return e.MaxLevel, false
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadBlocks(path string, out *BlockCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.DefsDigest = sha256Hex(raw)

	var defs []BlockDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("blocks.json: %w", err)
	}
	out.Defs = map[string]BlockDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("blocks.json: empty id")
		}
		if d.Solid && d.Liquid {
			return fmt.Errorf("blocks.json: %s is both solid and liquid", d.ID)
		}
		out.Defs[d.ID] = d
	}

	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	// AIR is palette id 0 so zeroed chunks read as empty space.
	if _, ok := out.Defs["AIR"]; !ok {
		return fmt.Errorf("blocks.json: missing AIR")
	}
	ids = append([]string{"AIR"}, filterOut(ids, "AIR")...)

	out.Palette = ids
	out.Index = make(map[string]uint16, len(ids))
	for i, id := range ids {
		out.Index[id] = uint16(i)
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

func loadItems(path string, out *ItemCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.DefsDigest = sha256Hex(raw)

	var defs []ItemDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("items.json: %w", err)
	}
	out.Defs = map[string]ItemDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("items.json: empty id")
		}
		if d.MaxStack <= 0 {
			return fmt.Errorf("items.json: %s: max_stack must be > 0", d.ID)
		}
		out.Defs[d.ID] = d
	}

	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out.Palette = ids
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

func loadEnchantments(path string, out *EnchantmentCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		// Optional: no enchantment catalog means every enchantment is illegal.
		if os.IsNotExist(err) {
			out.Digest = sha256Hex(nil)
			out.Defs = map[string]EnchantmentDef{}
			return nil
		}
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []EnchantmentDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("enchantments.json: %w", err)
	}
	out.Defs = map[string]EnchantmentDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("enchantments.json: empty id")
		}
		out.Defs[d.ID] = d
	}
	return nil
}

func filterOut(in []string, remove string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == remove {
			continue
		}
		out = append(out, s)
	}
	return out
}
