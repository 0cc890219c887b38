package recommend

import "github.com/ndenisov/webstudio-system/internal/model"

// Catalog — статический каталог технологий, поставляемый вместе с приложением.
// Порядок элементов значим: при равных оценках сортировка сохраняет его.
var Catalog = []model.Technology{
	{
		ID:         "react",
		Name:       "React",
		Category:   CategoryFrontend,
		Tags:       []string{"frontend", "spa", "ecommerce"},
		Popularity: 10,
		Complexity: 6,
	},
	{
		ID:         "nextjs",
		Name:       "Next.js",
		Category:   CategoryFrontend,
		Tags:       []string{"frontend", "ssr", "blog", "ecommerce"},
		Popularity: 9,
		Complexity: 7,
	},
	{
		ID:         "vue",
		Name:       "Vue.js",
		Category:   CategoryFrontend,
		Tags:       []string{"frontend", "spa"},
		Popularity: 8,
		Complexity: 4,
	},
	{
		ID:         "svelte",
		Name:       "Svelte",
		Category:   CategoryFrontend,
		Tags:       []string{"frontend", "spa"},
		Popularity: 6,
		Complexity: 3,
	},
	{
		ID:         "nodejs",
		Name:       "Node.js",
		Category:   CategoryBackend,
		Tags:       []string{"backend", "api", "ecommerce"},
		Popularity: 9,
		Complexity: 5,
	},
	{
		ID:         "golang",
		Name:       "Go",
		Category:   CategoryBackend,
		Tags:       []string{"backend", "api", "enterprise"},
		Popularity: 8,
		Complexity: 6,
	},
	{
		ID:         "django",
		Name:       "Django",
		Category:   CategoryBackend,
		Tags:       []string{"backend", "api", "cms"},
		Popularity: 7,
		Complexity: 6,
	},
	{
		ID:         "postgresql",
		Name:       "PostgreSQL",
		Category:   CategoryDatabase,
		Tags:       []string{"database", "enterprise"},
		Popularity: 9,
		Complexity: 6,
	},
	{
		ID:         "mongodb",
		Name:       "MongoDB",
		Category:   CategoryDatabase,
		Tags:       []string{"database"},
		Popularity: 8,
		Complexity: 4,
	},
	{
		ID:         "wordpress",
		Name:       "WordPress",
		Category:   CategoryCMS,
		Tags:       []string{"cms", "blog"},
		Popularity: 9,
		Complexity: 3,
	},
	{
		ID:         "strapi",
		Name:       "Strapi",
		Category:   CategoryCMS,
		Tags:       []string{"cms", "api", "blog"},
		Popularity: 6,
		Complexity: 4,
	},
	{
		ID:         "shopify",
		Name:       "Shopify",
		Category:   CategoryEcommerce,
		Tags:       []string{"ecommerce"},
		Popularity: 9,
		Complexity: 4,
	},
	{
		ID:         "woocommerce",
		Name:       "WooCommerce",
		Category:   CategoryEcommerce,
		Tags:       []string{"ecommerce", "cms"},
		Popularity: 8,
		Complexity: 5,
	},
	{
		ID:         "tailwind",
		Name:       "Tailwind CSS",
		Category:   CategoryStyling,
		Tags:       []string{"frontend", "styling"},
		Popularity: 9,
		Complexity: 3,
	},
	{
		ID:         "vercel",
		Name:       "Vercel",
		Category:   CategoryHosting,
		Tags:       []string{"hosting", "frontend"},
		Popularity: 8,
		Complexity: 2,
	},
	{
		ID:         "aws",
		Name:       "AWS",
		Category:   CategoryHosting,
		Tags:       []string{"hosting", "enterprise"},
		Popularity: 9,
		Complexity: 9,
	},
}
