//-------------------------------------------------------------------------
//
// pgEdge Star Loader
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package datagen

// City is a reference city written to the cities extract.
type City struct {
	Name       string
	State      string
	Capital    bool
	Population int64
	HDI        float64
	HDIIncome  float64
	HDILong    float64
	HDIEdu     float64
	GDPCapita  float64
	Category   string
}

// Cities is a sample of Brazilian municipalities with their indicators.
var Cities = []City{
	{"São Paulo", "SP", true, 12325232, 0.805, 0.843, 0.855, 0.725, 58691.9, "A"},
	{"Rio de Janeiro", "RJ", true, 6747815, 0.799, 0.840, 0.845, 0.719, 54426.1, "A"},
	{"Belo Horizonte", "MG", true, 2521564, 0.810, 0.841, 0.856, 0.737, 36759.7, "A"},
	{"Brasília", "DF", true, 3055149, 0.824, 0.863, 0.873, 0.742, 90742.8, "A"},
	{"Salvador", "BA", true, 2886698, 0.759, 0.772, 0.835, 0.679, 22205.6, "A"},
	{"Fortaleza", "CE", true, 2686612, 0.754, 0.749, 0.824, 0.695, 24149.2, "A"},
	{"Curitiba", "PR", true, 1948626, 0.823, 0.850, 0.855, 0.768, 44386.1, "A"},
	{"Manaus", "AM", true, 2219580, 0.737, 0.738, 0.826, 0.658, 36445.8, "A"},
	{"Recife", "PE", true, 1653461, 0.772, 0.798, 0.825, 0.698, 31743.7, "A"},
	{"Porto Alegre", "RS", true, 1488252, 0.805, 0.867, 0.857, 0.702, 49740.6, "A"},
	{"Goiânia", "GO", true, 1536097, 0.799, 0.823, 0.838, 0.739, 33221.7, "A"},
	{"Belém", "PA", true, 1499641, 0.746, 0.751, 0.822, 0.673, 21200.5, "A"},
	{"Florianópolis", "SC", true, 508826, 0.847, 0.870, 0.873, 0.800, 42719.2, "A"},
	{"Vitória", "ES", true, 365855, 0.845, 0.876, 0.855, 0.805, 63102.4, "A"},
	{"Campinas", "SP", false, 1213792, 0.805, 0.829, 0.860, 0.731, 53018.5, "A"},
	{"Guarulhos", "SP", false, 1392121, 0.763, 0.740, 0.830, 0.720, 46320.0, "B"},
	{"São José dos Campos", "SP", false, 729737, 0.807, 0.804, 0.855, 0.764, 54652.3, "B"},
	{"Ribeirão Preto", "SP", false, 711825, 0.800, 0.820, 0.844, 0.740, 45200.1, "B"},
	{"Santo André", "SP", false, 721368, 0.815, 0.819, 0.861, 0.769, 37312.9, "B"},
	{"Niterói", "RJ", false, 515317, 0.837, 0.887, 0.854, 0.773, 55780.4, "A"},
	{"Uberlândia", "MG", false, 699097, 0.789, 0.789, 0.885, 0.716, 42213.8, "B"},
	{"Juiz de Fora", "MG", false, 573285, 0.778, 0.782, 0.873, 0.688, 29781.3, "B"},
	{"Londrina", "PR", false, 575377, 0.778, 0.789, 0.837, 0.712, 32108.6, "B"},
	{"Maringá", "PR", false, 430157, 0.808, 0.806, 0.852, 0.768, 46730.2, "B"},
	{"Joinville", "SC", false, 597658, 0.809, 0.795, 0.889, 0.749, 50210.7, "B"},
	{"Blumenau", "SC", false, 361855, 0.806, 0.812, 0.894, 0.722, 47883.4, "B"},
	{"Caxias do Sul", "RS", false, 517451, 0.782, 0.818, 0.866, 0.676, 47580.1, "B"},
	{"Pelotas", "RS", false, 343132, 0.739, 0.758, 0.828, 0.646, 24060.2, "C"},
	{"Feira de Santana", "BA", false, 619609, 0.712, 0.697, 0.788, 0.657, 20600.8, "C"},
	{"Barreiras", "BA", false, 158432, 0.721, 0.717, 0.830, 0.633, 25146.5, "C"},
	{"Petrolina", "PE", false, 354317, 0.697, 0.696, 0.803, 0.604, 20104.1, "C"},
	{"Juazeiro do Norte", "CE", false, 276264, 0.694, 0.675, 0.796, 0.621, 16000.2, "C"},
	{"Anápolis", "GO", false, 391772, 0.737, 0.739, 0.826, 0.655, 34120.0, "C"},
	{"Santarém", "PA", false, 306480, 0.691, 0.633, 0.821, 0.635, 14750.5, "C"},
	{"Parintins", "AM", false, 115363, 0.658, 0.586, 0.768, 0.636, 12400.3, "D"},
	{"Paraty", "RJ", false, 43680, 0.693, 0.715, 0.830, 0.559, 32700.9, "A"},
	{"Ouro Preto", "MG", false, 74821, 0.741, 0.687, 0.856, 0.690, 48900.2, "A"},
	{"Gramado", "RS", false, 36864, 0.764, 0.794, 0.856, 0.656, 45300.7, "A"},
	{"Bonito", "MS", false, 22190, 0.670, 0.710, 0.820, 0.520, 30020.4, "A"},
	{"Campo Grande", "MS", true, 906092, 0.784, 0.790, 0.844, 0.724, 33300.6, "A"},
	{"Cuiabá", "MT", true, 618124, 0.785, 0.800, 0.834, 0.726, 38900.1, "A"},
	{"Natal", "RN", true, 890480, 0.763, 0.768, 0.835, 0.694, 25300.2, "A"},
	{"João Pessoa", "PB", true, 817511, 0.763, 0.770, 0.826, 0.698, 24100.8, "A"},
	{"Maceió", "AL", true, 1025360, 0.721, 0.739, 0.799, 0.635, 22126.3, "A"},
	{"Aracaju", "SE", true, 664908, 0.770, 0.784, 0.823, 0.708, 25500.4, "A"},
	{"Teresina", "PI", true, 868075, 0.751, 0.731, 0.820, 0.707, 23200.5, "A"},
	{"São Luís", "MA", true, 1108975, 0.768, 0.741, 0.813, 0.752, 28100.9, "A"},
	{"Palmas", "TO", true, 306296, 0.788, 0.789, 0.827, 0.749, 32010.6, "B"},
	{"Porto Velho", "RO", true, 529544, 0.736, 0.764, 0.819, 0.638, 33900.2, "B"},
	{"Rio Branco", "AC", true, 413418, 0.727, 0.729, 0.798, 0.661, 23800.7, "B"},
	{"Macapá", "AP", true, 512902, 0.733, 0.729, 0.820, 0.660, 21500.3, "B"},
	{"Boa Vista", "RR", true, 419652, 0.752, 0.737, 0.816, 0.708, 28300.5, "B"},
	{"Itabira", "MG", false, 120904, 0.756, 0.729, 0.851, 0.697, 39700.2, "C"},
	{"Lençóis", "BA", false, 11499, 0.623, 0.612, 0.774, 0.511, 12200.9, "B"},
}
