package addressing

// OwnerMapper finds the node that owns the data at an address.
type OwnerMapper interface {
	Find(address uint64) string
}

// SingleOwnerMapper is used when every address is owned by one node.
type SingleOwnerMapper struct {
	Owner string
}

// Find returns the only owner.
func (f *SingleOwnerMapper) Find(_ uint64) string {
	return f.Owner
}

// BankOwnerMapper maps an address to the L2 bank that owns it inside one
// cluster.
type BankOwnerMapper struct {
	Map   *AddressMap
	Banks []string
}

// NewBankOwnerMapper creates a mapper for the banks of one cluster. Banks
// must be ordered by local bank index.
func NewBankOwnerMapper(m *AddressMap, banks []string) *BankOwnerMapper {
	if len(banks) != m.BanksPerCluster {
		panic("bank list does not match the banks per cluster")
	}

	return &BankOwnerMapper{Map: m, Banks: banks}
}

// Find returns the owning bank.
func (f *BankOwnerMapper) Find(address uint64) string {
	return f.Banks[f.Map.LocalBank(address)]
}

// DirectoryOwnerMapper maps an address to its home directory.
type DirectoryOwnerMapper struct {
	Map         *AddressMap
	Directories []string
}

// NewDirectoryOwnerMapper creates a mapper over the directories, ordered by
// directory id.
func NewDirectoryOwnerMapper(
	m *AddressMap,
	dirs []string,
) *DirectoryOwnerMapper {
	if len(dirs) != m.NumDirectories {
		panic("directory list does not match the number of directories")
	}

	return &DirectoryOwnerMapper{Map: m, Directories: dirs}
}

// Find returns the home directory.
func (f *DirectoryOwnerMapper) Find(address uint64) string {
	return f.Directories[f.Map.OwnerDirectory(address)]
}
