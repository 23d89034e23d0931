package models

// FilterOption is one selectable value in a filter group
type FilterOption struct {
	ID    string `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Slug  string `json:"slug" db:"slug"`
	Value string `json:"value,omitempty" db:"-"`
}

// FilterOptions is everything the shop filter panel needs
type FilterOptions struct {
	Categories  []FilterOption `json:"categories"`
	Brands      []FilterOption `json:"brands"`
	Genders     []FilterOption `json:"genders"`
	Straps      []FilterOption `json:"straps"`
	Accessories []FilterOption `json:"accessories"`
	Services    []FilterOption `json:"services"`
}

// Gender values stored on products
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderUnisex = "unisex"
)

// GenderOptions, StrapTypeOptions, AccessoryOptions and ServiceOptions are fixed
// and identical for every request.
var (
	GenderOptions = []FilterOption{
		{ID: GenderMale, Name: "Nam", Slug: "nam", Value: GenderMale},
		{ID: GenderFemale, Name: "Nữ", Slug: "nu", Value: GenderFemale},
		{ID: GenderUnisex, Name: "Cả nam và nữ", Slug: "ca-nam-va-nu", Value: GenderUnisex},
	}

	StrapTypeOptions = []FilterOption{
		{ID: "leather", Name: "Dây da", Slug: "day-da", Value: "leather"},
		{ID: "metal", Name: "Dây kim loại", Slug: "day-kim-loai", Value: "metal"},
		{ID: "rubber", Name: "Dây cao su", Slug: "day-cao-su", Value: "rubber"},
		{ID: "fabric", Name: "Dây vải", Slug: "day-vai", Value: "fabric"},
	}

	AccessoryOptions = []FilterOption{
		{ID: "strap", Name: "Dây", Slug: "day", Value: "strap"},
		{ID: "clasp", Name: "Khóa", Slug: "khoa", Value: "clasp"},
	}

	ServiceOptions = []FilterOption{
		{ID: "battery replacement", Name: "Thay pin", Slug: "thay-pin", Value: "battery replacement"},
		{ID: "polishing", Name: "Đánh bóng", Slug: "danh-bong", Value: "polishing"},
		{ID: "crystal replacement", Name: "Thay mặt kính", Slug: "thay-mat-kinh", Value: "crystal replacement"},
		{ID: "cleaning & oiling", Name: "Lau dầu", Slug: "lau-dau", Value: "cleaning & oiling"},
	}
)

// FallbackFilterOptions is served when the database is unavailable
func FallbackFilterOptions() FilterOptions {
	return FilterOptions{
		Categories: []FilterOption{
			{ID: "1", Name: "Đồng hồ cổ điển", Slug: "co-dien"},
			{ID: "2", Name: "Đồng hồ thể thao", Slug: "the-thao"},
			{ID: "3", Name: "Đồng hồ thông minh", Slug: "thong-minh"},
			{ID: "4", Name: "Đồng hồ sang trọng", Slug: "sang-trong"},
		},
		Brands: []FilterOption{
			{ID: "1", Name: "Seiko", Slug: "seiko"},
			{ID: "2", Name: "Citizen", Slug: "citizen"},
			{ID: "3", Name: "Orient", Slug: "orient"},
			{ID: "4", Name: "Casio", Slug: "casio"},
			{ID: "5", Name: "Tissot", Slug: "tissot"},
		},
		Genders:     GenderOptions,
		Straps:      StrapTypeOptions,
		Accessories: AccessoryOptions,
		Services:    ServiceOptions,
	}
}

// StrapMaterial describes a strap-material landing page
type StrapMaterial struct {
	StrapType       string `json:"strap_type"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	BannerURL       string `json:"banner_url"`
	MetaTitle       string `json:"meta_title"`
	MetaDescription string `json:"meta_description"`
}

// StrapMaterials maps landing page slugs to the strap type they list
var StrapMaterials = map[string]StrapMaterial{
	"dong-ho-day-da": {
		StrapType:       "leather",
		Name:            "Đồng hồ dây da",
		Description:     "Đồng hồ dây da đẹp, thời trang, chính hãng",
		BannerURL:       "/images/dong-ho-day-da-chinh-hang.avif",
		MetaTitle:       "Đồng hồ dây da đẹp, thời trang, chính hãng",
		MetaDescription: "Bộ sưu tập đồng hồ dây da cao cấp, thiết kế sang trọng, từ cổ điển đến hiện đại.",
	},
	"dong-ho-day-kim-loai": {
		StrapType:       "metal",
		Name:            "Đồng hồ dây kim loại",
		Description:     "Đồng hồ dây kim loại đẹp, cao cấp, chính hãng",
		BannerURL:       "/images/dong-ho-day-kim-loai-chinh-hang.avif",
		MetaTitle:       "Đồng hồ dây kim loại đẹp, cao cấp, chính hãng",
		MetaDescription: "Bộ sưu tập đồng hồ dây kim loại cao cấp, bền bỉ với thời gian.",
	},
	"dong-ho-day-cao-su": {
		StrapType:       "rubber",
		Name:            "Đồng hồ dây cao su",
		Description:     "Đồng hồ nam dây cao su cao cấp, bền nhẹ",
		BannerURL:       "/images/dong-ho-nam-day-cao-su.avif",
		MetaTitle:       "Đồng hồ dây cao su cao cấp, bền nhẹ",
		MetaDescription: "Đồng hồ dây cao su thể thao, năng động, chống nước tốt.",
	},
	"dong-ho-day-vai": {
		StrapType:       "fabric",
		Name:            "Đồng hồ dây vải",
		Description:     "Đồng hồ dây vải đẹp, bền, cao cấp, chính hãng",
		BannerURL:       "/images/dong-ho-day-vai-chinh-hang.avif",
		MetaTitle:       "Đồng hồ dây vải đẹp, bền, cao cấp, chính hãng",
		MetaDescription: "Đồng hồ dây vải phong cách trẻ trung, thoáng khí, thoải mái.",
	},
}
